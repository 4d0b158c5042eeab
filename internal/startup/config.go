package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"video-creator/internal/logging"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	// WorkDir is the absolute root under which session directories live.
	WorkDir string

	MaxRequestBytes int64
	MaxAudioBytes   int64
	MaxImageBytes   int64
	MaxImages       int

	// FrameRate of 0 means derive it from the audio duration.
	FrameRate             float64
	AudioFallbackDuration time.Duration

	SessionRetention time.Duration
	SweepInterval    time.Duration

	TranscodeTimeout     time.Duration
	TranscodeConcurrency int

	OptimizeImages       bool
	OptimizeMaxDimension int

	FFmpegPath  string
	FFprobePath string

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string
}

// settings is the raw, unparsed configuration as it appears in the TOML
// file and the environment.
type settings struct {
	Port            string `toml:"port"`
	MetricsPort     string `toml:"metrics_port"`
	MetricsEnabled  bool   `toml:"metrics_enabled"`
	LogLevel        string `toml:"log_level"`
	LogHealthChecks bool   `toml:"log_health_checks"`

	WorkDir string `toml:"work_dir"`

	MaxRequestSize string `toml:"max_request_size"`
	MaxAudioSize   string `toml:"max_audio_size"`
	MaxImageSize   string `toml:"max_image_size"`
	MaxImages      int    `toml:"max_images"`

	FrameRate             string `toml:"frame_rate"`
	AudioFallbackDuration string `toml:"audio_fallback_duration"`

	SessionRetention string `toml:"session_retention"`
	SweepInterval    string `toml:"sweep_interval"`

	TranscodeTimeout     string `toml:"transcode_timeout"`
	TranscodeConcurrency int    `toml:"transcode_concurrency"`

	OptimizeImages       bool `toml:"optimize_images"`
	OptimizeMaxDimension int  `toml:"optimize_max_dimension"`

	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

func defaultSettings() settings {
	return settings{
		Port:                  "8080",
		MetricsPort:           "9090",
		MetricsEnabled:        true,
		LogHealthChecks:       true,
		WorkDir:               "./temp_uploads",
		MaxRequestSize:        "200MB",
		MaxAudioSize:          "50MB",
		MaxImageSize:          "10MB",
		MaxImages:             100,
		FrameRate:             "auto",
		AudioFallbackDuration: "60s",
		SessionRetention:      "1h",
		SweepInterval:         "5m",
		TranscodeTimeout:      "120s",
		TranscodeConcurrency:  1,
		OptimizeImages:        false,
		OptimizeMaxDimension:  1920,
		FFmpegPath:            "ffmpeg",
		FFprobePath:           "ffprobe",
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (skipped when path is empty), then environment variables. It does not
// touch the filesystem beyond reading the file.
func Load(path string) (*Config, error) {
	s := defaultSettings()

	if path != "" {
		if err := decodeFile(path, &s); err != nil {
			return nil, err
		}
	}

	applyEnv(&s)

	if s.LogLevel != "" {
		level, ok := logging.ParseLevel(s.LogLevel)
		if !ok {
			return nil, fmt.Errorf("invalid log level %q", s.LogLevel)
		}
		logging.SetLevel(level)
	}

	config, err := s.parse()
	if err != nil {
		return nil, err
	}
	config.ConfigFile = path

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeFile(path string, s *settings) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close config file %s: %v", path, err)
		}
	}()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(s *settings) {
	s.Port = getEnv("PORT", s.Port)
	s.MetricsPort = getEnv("METRICS_PORT", s.MetricsPort)
	s.MetricsEnabled = getEnvBool("METRICS_ENABLED", s.MetricsEnabled)
	s.LogLevel = getEnv("LOG_LEVEL", s.LogLevel)
	s.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", s.LogHealthChecks)
	s.WorkDir = getEnv("WORK_DIR", s.WorkDir)
	s.MaxRequestSize = getEnv("MAX_REQUEST_SIZE", s.MaxRequestSize)
	s.MaxAudioSize = getEnv("MAX_AUDIO_SIZE", s.MaxAudioSize)
	s.MaxImageSize = getEnv("MAX_IMAGE_SIZE", s.MaxImageSize)
	s.MaxImages = getEnvInt("MAX_IMAGES", s.MaxImages)
	s.FrameRate = getEnv("FRAME_RATE", s.FrameRate)
	s.AudioFallbackDuration = getEnv("AUDIO_FALLBACK_DURATION", s.AudioFallbackDuration)
	s.SessionRetention = getEnv("SESSION_RETENTION", s.SessionRetention)
	s.SweepInterval = getEnv("SWEEP_INTERVAL", s.SweepInterval)
	s.TranscodeTimeout = getEnv("TRANSCODE_TIMEOUT", s.TranscodeTimeout)
	s.TranscodeConcurrency = getEnvInt("TRANSCODE_CONCURRENCY", s.TranscodeConcurrency)
	s.OptimizeImages = getEnvBool("OPTIMIZE_IMAGES", s.OptimizeImages)
	s.OptimizeMaxDimension = getEnvInt("OPTIMIZE_MAX_DIMENSION", s.OptimizeMaxDimension)
	s.FFmpegPath = getEnv("FFMPEG_PATH", s.FFmpegPath)
	s.FFprobePath = getEnv("FFPROBE_PATH", s.FFprobePath)
}

func (s settings) parse() (*Config, error) {
	var errs []error

	size := func(name, value string) int64 {
		n, err := humanize.ParseBytes(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid size %q: %w", name, value, err))
		}
		return int64(n)
	}
	duration := func(name, value string) time.Duration {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q: %w", name, value, err))
		}
		return d
	}

	workDir, err := filepath.Abs(s.WorkDir)
	if err != nil {
		errs = append(errs, fmt.Errorf("work_dir: %w", err))
	}

	frameRate, err := parseFrameRate(s.FrameRate)
	if err != nil {
		errs = append(errs, err)
	}

	config := &Config{
		Port:                  s.Port,
		MetricsPort:           s.MetricsPort,
		MetricsEnabled:        s.MetricsEnabled,
		LogHealthChecks:       s.LogHealthChecks,
		WorkDir:               workDir,
		MaxRequestBytes:       size("max_request_size", s.MaxRequestSize),
		MaxAudioBytes:         size("max_audio_size", s.MaxAudioSize),
		MaxImageBytes:         size("max_image_size", s.MaxImageSize),
		MaxImages:             s.MaxImages,
		FrameRate:             frameRate,
		AudioFallbackDuration: duration("audio_fallback_duration", s.AudioFallbackDuration),
		SessionRetention:      duration("session_retention", s.SessionRetention),
		SweepInterval:         duration("sweep_interval", s.SweepInterval),
		TranscodeTimeout:      duration("transcode_timeout", s.TranscodeTimeout),
		TranscodeConcurrency:  s.TranscodeConcurrency,
		OptimizeImages:        s.OptimizeImages,
		OptimizeMaxDimension:  s.OptimizeMaxDimension,
		FFmpegPath:            s.FFmpegPath,
		FFprobePath:           s.FFprobePath,
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return config, nil
}

// parseFrameRate accepts "auto" (or empty) for a derived rate, otherwise a
// positive number of frames per second.
func parseFrameRate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "auto") {
		return 0, nil
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil || !(rate > 0) {
		return 0, fmt.Errorf("frame_rate: must be \"auto\" or a positive number, got %q", value)
	}
	return rate, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.SessionRetention <= 0 {
		errs = append(errs, errors.New("session_retention must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep_interval must be positive"))
	}
	if c.TranscodeTimeout <= 0 {
		errs = append(errs, errors.New("transcode_timeout must be positive"))
	}
	if c.AudioFallbackDuration <= 0 {
		errs = append(errs, errors.New("audio_fallback_duration must be positive"))
	}
	if c.MaxRequestBytes <= 0 {
		errs = append(errs, errors.New("max_request_size must be positive"))
	}
	if c.MaxImages < 0 {
		errs = append(errs, errors.New("max_images must not be negative (0 means no limit)"))
	}
	if c.TranscodeConcurrency < 0 {
		errs = append(errs, errors.New("transcode_concurrency must not be negative (0 means one per CPU)"))
	}
	if c.OptimizeImages && c.OptimizeMaxDimension <= 0 {
		errs = append(errs, errors.New("optimize_max_dimension must be positive when optimize_images is enabled"))
	}
	if c.MaxAudioBytes > c.MaxRequestBytes {
		errs = append(errs, fmt.Errorf("max_audio_size (%s) exceeds max_request_size (%s)",
			humanize.Bytes(uint64(c.MaxAudioBytes)), humanize.Bytes(uint64(c.MaxRequestBytes))))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port must be set"))
	}
	if c.MetricsEnabled && c.MetricsPort == c.Port {
		errs = append(errs, fmt.Errorf("metrics_port must differ from port (%s)", c.Port))
	}

	return errors.Join(errs...)
}

// LoadConfig loads configuration, logs it and prepares the work directory.
// The TOML file named by CONFIG_FILE is applied before environment
// variables.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logSection("CONFIGURATION")

	configFile := os.Getenv("CONFIG_FILE")
	config, err := Load(configFile)
	if err != nil {
		return nil, err
	}

	if configFile != "" {
		logging.Info("  CONFIG_FILE:              %s", configFile)
	}
	logging.Info("  PORT:                     %s", config.Port)
	logging.Info("  METRICS_PORT:             %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:          %v", config.MetricsEnabled)
	logging.Info("  WORK_DIR:                 %s", config.WorkDir)
	logging.Info("  MAX_REQUEST_SIZE:         %s", humanize.Bytes(uint64(config.MaxRequestBytes)))
	logging.Info("  MAX_AUDIO_SIZE:           %s", limitString(config.MaxAudioBytes))
	logging.Info("  MAX_IMAGE_SIZE:           %s", limitString(config.MaxImageBytes))
	logging.Info("  MAX_IMAGES:               %s", countString(config.MaxImages))
	logging.Info("  FRAME_RATE:               %s", frameRateString(config.FrameRate))
	logging.Info("  AUDIO_FALLBACK_DURATION:  %v", config.AudioFallbackDuration)
	logging.Info("  SESSION_RETENTION:        %v", config.SessionRetention)
	logging.Info("  SWEEP_INTERVAL:           %v", config.SweepInterval)
	logging.Info("  TRANSCODE_TIMEOUT:        %v", config.TranscodeTimeout)
	logging.Info("  TRANSCODE_CONCURRENCY:    %s", concurrencyString(config.TranscodeConcurrency))
	logging.Info("  OPTIMIZE_IMAGES:          %v (max %dpx)", config.OptimizeImages, config.OptimizeMaxDimension)
	logging.Info("  LOG_HEALTH_CHECKS:        %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:                %s", logging.GetLevel())

	logSection("DIRECTORY SETUP")

	if err := ensureDirectory(config.WorkDir, "work"); err != nil {
		return nil, fmt.Errorf("work directory error: %w", err)
	}

	logging.Debug("  Testing work directory write access...")
	if err := testWriteAccess(config.WorkDir); err != nil {
		return nil, fmt.Errorf("work directory is not writable: %w", err)
	}
	logging.Info("  [OK] Work directory is writable: %s", config.WorkDir)

	return config, nil
}

func limitString(n int64) string {
	if n <= 0 {
		return "unlimited"
	}
	return humanize.Bytes(uint64(n))
}

func countString(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func frameRateString(rate float64) string {
	if rate <= 0 {
		return "auto (images span the audio)"
	}
	return strconv.FormatFloat(rate, 'f', -1, 64) + " fps"
}

func concurrencyString(n int) string {
	if n <= 0 {
		return "auto (one per CPU)"
	}
	return strconv.Itoa(n)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
