// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [Load] layers three sources, later ones winning:
//
//  1. Built-in defaults
//  2. An optional TOML file, named by CONFIG_FILE for [LoadConfig]
//  3. Environment variables
//
// Supported settings (environment variable / TOML key, default):
//
//   - PORT / port: HTTP server port (8080)
//   - METRICS_PORT / metrics_port: Prometheus metrics server port (9090)
//   - METRICS_ENABLED / metrics_enabled: Enable the metrics server (true)
//   - WORK_DIR / work_dir: Root of per-request session directories (./temp_uploads)
//   - MAX_REQUEST_SIZE / max_request_size: Whole upload limit (200MB)
//   - MAX_AUDIO_SIZE / max_audio_size: Audio file limit, 0 for none (50MB)
//   - MAX_IMAGE_SIZE / max_image_size: Per-image limit, 0 for none (10MB)
//   - MAX_IMAGES / max_images: Image count limit, 0 for none (100)
//   - FRAME_RATE / frame_rate: "auto" or a fixed fps (auto)
//   - AUDIO_FALLBACK_DURATION / audio_fallback_duration: Assumed audio length when ffprobe fails (60s)
//   - SESSION_RETENTION / session_retention: Age after which the janitor reclaims a session (1h)
//   - SWEEP_INTERVAL / sweep_interval: Janitor period (5m)
//   - TRANSCODE_TIMEOUT / transcode_timeout: Wall-clock limit per FFmpeg run (120s)
//   - TRANSCODE_CONCURRENCY / transcode_concurrency: Concurrent FFmpeg runs, 0 for one per CPU (1)
//   - OPTIMIZE_IMAGES / optimize_images: Downscale large frames before encoding (false)
//   - OPTIMIZE_MAX_DIMENSION / optimize_max_dimension: Longest side after optimization (1920)
//   - FFMPEG_PATH / ffmpeg_path, FFPROBE_PATH / ffprobe_path: Binaries (ffmpeg, ffprobe)
//   - LOG_LEVEL / log_level: debug, info, warn, error (info)
//   - LOG_HEALTH_CHECKS / log_health_checks: Log health check requests (true)
//
// Sizes accept human-readable units such as "50MB" or "10 MiB". Durations
// use Go syntax ("90s", "1h30m"). Memory limits (MEMORY_LIMIT, MEMORY_RATIO,
// GOMEMLIMIT) are handled by the memory package.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
//   - [LogSessionStoreInit]: Work directory ownership and leftovers
//   - [LogTranscoderInit]: FFmpeg and ffprobe availability
//   - [LogJanitorInit]: Retention settings
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
