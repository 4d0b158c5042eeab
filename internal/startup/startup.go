package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"video-creator/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// LogSessionStoreInit logs work directory ownership
func LogSessionStoreInit(root string, orphans int) {
	logSection("SESSION STORE INITIALIZATION")
	logging.Info("  [OK] Work directory locked: %s", root)
	if orphans > 0 {
		logging.Warn("  Found %d session directories from a previous run", orphans)
		logging.Warn("  They will be reclaimed once older than the retention period")
	}
}

// LogTranscoderInit checks that FFmpeg and ffprobe can be executed and
// reports whether the transcoder is usable.
func LogTranscoderInit(ffmpegPath, ffprobePath string, timeout time.Duration, concurrency int) bool {
	logSection("TRANSCODER INITIALIZATION")
	logging.Info("  Timeout:      %v", timeout)
	logging.Info("  Concurrency:  %d", concurrency)

	available := true
	if err := checkBinary(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video creation will fail until FFmpeg is installed")
		available = false
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}

	if err := checkBinary(ffprobePath); err != nil {
		logging.Warn("  ffprobe check failed: %v", err)
		logging.Warn("  Audio durations will fall back to the configured default")
	} else {
		logging.Info("  [OK] ffprobe is available")
	}

	return available
}

// LogImageOptimizerInit logs the image pre-optimization mode
func LogImageOptimizerInit(enabled, vips bool, maxDimension int) {
	if !enabled {
		logging.Info("  Image pre-optimization: DISABLED")
		return
	}
	backend := "imaging"
	if vips {
		backend = "libvips"
	}
	logging.Info("  Image pre-optimization: ENABLED (max %dpx, %s)", maxDimension, backend)
}

// LogJanitorInit logs janitor settings
func LogJanitorInit(retention, interval time.Duration) {
	logSection("JANITOR INITIALIZATION")
	logging.Info("  Retention:    %v", retention)
	logging.Info("  Interval:     %v", interval)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the routing table (at debug level) and access log
// settings.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logSection("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		sort.SliceStable(routes, func(i, j int) bool {
			return getRouteGroup(routes[i].Path) < getRouteGroup(routes[j].Path)
		})

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, route := range routes {
			logging.Debug("    %-6s %-16s %s", route.Method, route.Path, route.Name)
		}
	}

	health := "OFF (set LOG_HEALTH_CHECKS=true to enable)"
	if logHealthChecks {
		health = "ON"
	}
	logging.Info("  Access log: W3C extended format, health checks %s", health)
}

// getRouteGroup returns the first path segment, "" for the root.
func getRouteGroup(path string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logSection("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Upload:          POST http://localhost:%s/create-video", config.Port)
	logging.Info("  Probes:          http://localhost:%s/healthz, /livez, /readyz", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://localhost:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Listening on all interfaces; press Ctrl+C to stop")
	logRule()
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logSection("SHUTDOWN INITIATED (received %s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

const rule = "------------------------------------------------------------"

func logRule() {
	logging.Info(rule)
}

// logSection prints a blank line and a ruled section title.
func logSection(format string, args ...interface{}) {
	logging.Info("")
	logRule()
	logging.Info(format, args...)
	logRule()
}

func printBanner() {
	banner := "\n" + rule + `
       _     _                                     _
__   _(_) __| | ___  ___         ___ _ __ ___  __ _| |_ ___  _ __
\ \ / / |/ _' |/ _ \/ _ \ _____ / __| '__/ _ \/ _' | __/ _ \| '__|
 \ V /| | (_| |  __/ (_) |_____| (__| | |  __/ (_| | || (_) | |
  \_/ |_|\__,_|\___|\___/       \___|_|  \___|\__,_|\__\___/|_|

` + rule
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logRule()
	logging.Info("SYSTEM INFORMATION")
	logRule()
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

// checkBinary verifies that binary resolves on PATH (or as a path) and
// answers -version.
func checkBinary(binary string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s not found: %w", binary, err)
	}
	logging.Debug("  %s path: %s", filepath.Base(binary), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", filepath.Base(binary), err)
	}

	firstLine, _, _ := strings.Cut(string(output), "\n")
	logging.Debug("  %s version: %s", filepath.Base(binary), strings.TrimSpace(firstLine))

	return nil
}
