package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"video-creator/internal/filesystem"
	"video-creator/internal/logging"
	"video-creator/internal/metrics"
)

// DefaultFallbackDuration is the audio length assumed when probing fails.
const DefaultFallbackDuration = 60.0

// Config holds transcoder settings.
type Config struct {
	FFmpegPath       string
	FFprobePath      string
	Timeout          time.Duration
	FallbackDuration float64
}

// Transcoder runs ffmpeg merges and ffprobe measurements.
type Transcoder struct {
	config    Config
	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// Job describes one merge of an image sequence and an audio track.
type Job struct {
	// ImagePattern is a printf-style path addressing the frames, e.g. dir/img%03d.jpg.
	ImagePattern string
	ImageCount   int
	AudioPath    string
	// SubtitlePath is burned into the video when set.
	SubtitlePath string
	FrameRate    float64
	OutputPath   string
}

// New creates a new Transcoder instance.
func New(config Config) *Transcoder {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	if config.FallbackDuration <= 0 {
		config.FallbackDuration = DefaultFallbackDuration
	}

	return &Transcoder{
		config:    config,
		processes: make(map[string]*exec.Cmd),
	}
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration asks ffprobe for the container duration of path in seconds.
func (t *Transcoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.config.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	var result probeResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", result.Format.Duration, err)
	}
	if !(duration > 0) {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %v", duration)
	}
	return duration, nil
}

// AudioDuration measures path, substituting the configured fallback when the
// probe fails. measured is false when the fallback was used; captions and
// the frame rate are then timed against a guess.
func (t *Transcoder) AudioDuration(ctx context.Context, path string) (seconds float64, measured bool) {
	duration, err := t.ProbeDuration(ctx, path)
	if err != nil {
		metrics.AudioProbeFallbacks.Inc()
		logging.Warn("Could not measure audio duration of %s, assuming %.1fs: %v",
			filepath.Base(path), t.config.FallbackDuration, err)
		return t.config.FallbackDuration, false
	}
	return duration, true
}

// DeriveFrameRate returns fixed when it is positive, otherwise the rate at
// which imageCount frames exactly span duration seconds.
func DeriveFrameRate(imageCount int, duration, fixed float64) float64 {
	if fixed > 0 {
		return fixed
	}
	if imageCount <= 0 || !(duration > 0) {
		return 1
	}
	return float64(imageCount) / duration
}

// BuildArgs returns the ffmpeg argument list for job.
func BuildArgs(job Job) []string {
	args := []string{
		"-y",
		"-framerate", strconv.FormatFloat(job.FrameRate, 'f', -1, 64),
		"-i", job.ImagePattern,
		"-i", job.AudioPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		"-shortest",
	}

	if job.SubtitlePath != "" {
		args = append(args, "-vf", "subtitles="+escapeFilterPath(job.SubtitlePath))
	}

	return append(args, job.OutputPath)
}

// escapeFilterPath quotes a path for use as a filtergraph option value.
func escapeFilterPath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `'\''`)
	return "'" + path + "'"
}

// Run executes job and verifies that it produced a non-empty output file.
// The run is bounded only by the configured timeout; cancellation of ctx
// does not abort an in-flight merge.
func (t *Transcoder) Run(ctx context.Context, job Job) error {
	ctx = context.WithoutCancel(ctx)
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	args := BuildArgs(job)
	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	metrics.TranscoderJobsInProgress.Inc()
	defer metrics.TranscoderJobsInProgress.Dec()

	logging.Debug("Running %s %s", t.config.FFmpegPath, strings.Join(args, " "))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.TranscoderJobsTotal.WithLabelValues("failed").Inc()
		return &FailedError{Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	// Track the process
	t.processMu.Lock()
	t.processes[job.OutputPath] = cmd
	t.processMu.Unlock()

	err := cmd.Wait()

	t.processMu.Lock()
	delete(t.processes, job.OutputPath)
	t.processMu.Unlock()

	metrics.TranscoderJobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.TranscoderJobsTotal.WithLabelValues("timeout").Inc()
			logging.Error("FFmpeg timed out after %v for %s", t.config.Timeout, job.OutputPath)
			return fmt.Errorf("%w after %v", ErrTimeout, t.config.Timeout)
		}
		metrics.TranscoderJobsTotal.WithLabelValues("failed").Inc()
		logging.Error("FFmpeg stderr: %s", stderr.String())
		return &FailedError{Err: err, Stderr: stderr.String()}
	}

	info, statErr := filesystem.StatWithRetry(job.OutputPath, filesystem.DefaultRetryConfig())
	if statErr != nil || info.Size() == 0 {
		metrics.TranscoderJobsTotal.WithLabelValues("output_missing").Inc()
		logging.Error("FFmpeg exited cleanly but %s is missing or empty", job.OutputPath)
		return &FailedError{Err: ErrOutputMissing, Stderr: stderr.String()}
	}

	metrics.TranscoderJobsTotal.WithLabelValues("success").Inc()
	logging.Debug("FFmpeg produced %s (%d bytes) in %v", job.OutputPath, info.Size(), time.Since(start))
	return nil
}

// Cleanup stops all active transcoding processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for path, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process for: %s", path)
			if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logging.Warn("failed to kill transcoding process for %s: %v", path, err)
			}
		}
	}
}

// Active returns the number of running ffmpeg processes.
func (t *Transcoder) Active() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}
