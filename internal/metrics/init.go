package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, reason := range []string{"request", "janitor", "orphan", "shutdown"} {
		SessionsReleasedTotal.WithLabelValues(reason)
	}

	for _, outcome := range []string{"success", "validation_error", "storage_error",
		"transcode_failed", "transcode_timeout", "error"} {
		PipelineRequestsTotal.WithLabelValues(outcome)
	}

	for _, stage := range []string{"persist", "probe", "subtitles", "transcode", "extract"} {
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, status := range []string{"resized", "skipped", "fallback"} {
		ImageOptimizationsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"created", "skipped"} {
		SubtitleTracksTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "failed", "timeout", "output_missing"} {
		TranscoderJobsTotal.WithLabelValues(status)
	}

	for _, source := range []string{"registry", "orphan"} {
		JanitorReclaimedTotal.WithLabelValues(source)
	}

	for _, op := range []string{"stat", "read"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}
