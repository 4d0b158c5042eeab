package workers

import (
	"runtime"
)

// Count returns the number of workers for a task with the given CPU
// multiplier. It respects container CPU limits via GOMAXPROCS.
//
// The limit parameter caps the worker count. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Capacity resolves a configured concurrency. Positive values are used as
// given; zero or negative means one slot per available CPU, capped at limit.
func Capacity(configured, limit int) int {
	if configured > 0 {
		return configured
	}
	return ForCPU(limit)
}
