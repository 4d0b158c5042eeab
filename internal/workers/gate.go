package workers

import (
	"context"
	"time"

	"video-creator/internal/metrics"
)

// Gate bounds how many heavy jobs run at once. Callers beyond capacity wait
// in Acquire until a slot frees up or their context ends.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting capacity concurrent holders (minimum 1).
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is available or ctx is done. A nil error means
// the caller holds a slot and must call Release exactly once.
func (g *Gate) Acquire(ctx context.Context) error {
	start := time.Now()
	select {
	case g.slots <- struct{}{}:
		metrics.TranscoderQueueWait.Observe(time.Since(start).Seconds())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
		panic("workers: Release without matching Acquire")
	}
}

// Capacity returns the maximum number of concurrent holders.
func (g *Gate) Capacity() int {
	return cap(g.slots)
}

// InUse returns the number of slots currently held.
func (g *Gate) InUse() int {
	return len(g.slots)
}
