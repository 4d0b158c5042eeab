package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_creator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_creator_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRequestBodyBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_creator_http_request_body_bytes",
			Help:    "Declared size of HTTP request bodies",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"path"},
	)
)

// Session metrics
var (
	SessionsOpenedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_creator_sessions_opened_total",
			Help: "Total number of working sessions created",
		},
	)

	SessionsReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_sessions_released_total",
			Help: "Total number of working sessions reclaimed, by who reclaimed them",
		},
		[]string{"reason"}, // "request", "janitor", "orphan", "shutdown"
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_creator_sessions_active",
			Help: "Number of working sessions currently registered",
		},
	)

	SessionReleaseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_creator_session_release_errors_total",
			Help: "Total number of session removals that left files behind",
		},
	)

	SessionAgeAtRelease = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_creator_session_age_at_release_seconds",
			Help:    "Age of a session when it was reclaimed",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600, 7200},
		},
	)

	WorkDirBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_creator_work_dir_bytes",
			Help: "Total size of files under the work directory in bytes",
		},
	)
)

// Pipeline metrics
var (
	PipelineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_pipeline_requests_total",
			Help: "Total number of video creation requests by outcome",
		},
		[]string{"outcome"}, // "success", "validation_error", "storage_error", "transcode_failed", "transcode_timeout", "error"
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_creator_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	OutputSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_creator_output_size_bytes",
			Help:    "Size of produced videos in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
	)

	ImageOptimizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_image_optimizations_total",
			Help: "Total number of image pre-optimization attempts",
		},
		[]string{"status"}, // "resized", "skipped", "fallback"
	)
)

// Subtitle metrics
var (
	SubtitleTracksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_subtitle_tracks_total",
			Help: "Total number of subtitle synthesis attempts by outcome",
		},
		[]string{"outcome"}, // "created", "skipped"
	)

	SubtitleCues = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_creator_subtitle_cues",
			Help:    "Number of cues in synthesized subtitle tracks",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_transcoder_jobs_total",
			Help: "Total number of transcoding jobs",
		},
		[]string{"status"}, // "success", "failed", "timeout", "output_missing"
	)

	TranscoderJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_creator_transcoder_job_duration_seconds",
			Help:    "Transcoding job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_creator_transcoder_jobs_in_progress",
			Help: "Number of transcoding jobs currently in progress",
		},
	)

	TranscoderQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_creator_transcoder_queue_wait_seconds",
			Help:    "Time spent waiting for a free transcoding slot",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 10, 30, 60, 120},
		},
	)

	AudioProbeFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_creator_audio_probe_fallbacks_total",
			Help: "Total number of times the audio duration probe failed and the fallback duration was used",
		},
	)
)

// Janitor metrics
var (
	JanitorSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_creator_janitor_sweeps_total",
			Help: "Total number of retention sweeps",
		},
	)

	JanitorReclaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_janitor_reclaimed_total",
			Help: "Total number of sessions reclaimed by the janitor",
		},
		[]string{"source"}, // "registry", "orphan"
	)

	JanitorLastSweepTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_creator_janitor_last_sweep_timestamp",
			Help: "Unix timestamp of the last retention sweep",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_creator_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_creator_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
