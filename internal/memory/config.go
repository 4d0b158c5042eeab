package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"video-creator/internal/logging"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMemoryRatio is the share of container memory given to the Go heap.
	// FFmpeg runs as a child process outside the heap, so a quarter of the
	// container is left for it and for libvips.
	DefaultMemoryRatio = 0.75
)

// Sources reported in ConfigResult.Source.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceNone        = "none"
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source is one of the Source* constants
	Source string

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets GOMEMLIMIT based on the container memory limit.
// Call this early in main() before significant allocations.
//
// Environment variables:
//   - GOMEMLIMIT: If set, this takes precedence (standard Go env var)
//   - MEMORY_LIMIT: Container memory limit, in bytes or with a unit ("512MiB")
//   - MEMORY_RATIO: Optional ratio of memory to use for Go heap (default: 0.75)
func ConfigureFromEnv() ConfigResult {
	result := ConfigResult{Source: SourceNone}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = SourceGoMemLimit
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	memLimitStr := os.Getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return result
	}

	parsed, err := humanize.ParseBytes(memLimitStr)
	if err != nil || parsed == 0 || parsed > math.MaxInt64 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", memLimitStr, err)
		return result
	}
	memLimit := int64(parsed)
	result.ContainerLimit = memLimit

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	result.Ratio = ratio

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = SourceMemoryLimit
	result.GoMemLimit = goMemLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		humanize.IBytes(uint64(goMemLimit)),
		ratio*100,
		humanize.IBytes(uint64(memLimit)),
	)

	return result
}

// parseRatio returns DefaultMemoryRatio unless s is a number in (0, 1].
func parseRatio(s string) float64 {
	if s == "" {
		return DefaultMemoryRatio
	}

	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", s, err, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	if ratio <= 0 || ratio > 1.0 || math.IsNaN(ratio) {
		logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}
