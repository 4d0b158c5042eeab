package transcoder

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when ffmpeg exceeds the configured wall-clock limit.
	ErrTimeout = errors.New("transcode timed out")

	// ErrOutputMissing is returned (wrapped in a FailedError) when ffmpeg exits
	// cleanly but leaves no output behind.
	ErrOutputMissing = errors.New("transcoder produced no output")
)

// FailedError carries ffmpeg's diagnostic output for a failed merge.
type FailedError struct {
	Err    error
	Stderr string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("transcode failed: %v", e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}
