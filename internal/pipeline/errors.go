package pipeline

import (
	"errors"

	"video-creator/internal/session"
	"video-creator/internal/transcoder"
)

// ValidationError reports a request the caller must fix.
type ValidationError struct {
	Message string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// Outcome labels for video_creator_pipeline_requests_total.
const (
	OutcomeSuccess          = "success"
	OutcomeValidationError  = "validation_error"
	OutcomeStorageError     = "storage_error"
	OutcomeTranscodeFailed  = "transcode_failed"
	OutcomeTranscodeTimeout = "transcode_timeout"
	OutcomeError            = "error"
)

// Outcome classifies err into one of the Outcome* labels.
func Outcome(err error) string {
	var validationErr *ValidationError
	var storageErr *session.StorageError
	var failedErr *transcoder.FailedError

	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &validationErr):
		return OutcomeValidationError
	case errors.Is(err, transcoder.ErrTimeout):
		return OutcomeTranscodeTimeout
	case errors.As(err, &failedErr):
		return OutcomeTranscodeFailed
	case errors.As(err, &storageErr):
		return OutcomeStorageError
	default:
		return OutcomeError
	}
}
