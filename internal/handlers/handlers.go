package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"video-creator/internal/pipeline"
	"video-creator/internal/startup"
)

// Processor builds videos; *pipeline.Orchestrator in production.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// SessionStats reports live session counts for health output.
type SessionStats interface {
	Len() int
}

// Limits are the upload constraints advertised and enforced over HTTP.
type Limits struct {
	MaxRequestBytes int64
	MaxAudioBytes   int64
	MaxImageBytes   int64
	MaxImages       int
}

type Handlers struct {
	processor Processor
	sessions  SessionStats
	limits    Limits
	startTime time.Time
	ready     atomic.Bool
}

func New(processor Processor, sessions SessionStats, config *startup.Config) *Handlers {
	return &Handlers{
		processor: processor,
		sessions:  sessions,
		limits: Limits{
			MaxRequestBytes: config.MaxRequestBytes,
			MaxAudioBytes:   config.MaxAudioBytes,
			MaxImageBytes:   config.MaxImageBytes,
			MaxImages:       config.MaxImages,
		},
		startTime: time.Now(),
	}
}

// SetReady marks whether the service should receive traffic.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}
