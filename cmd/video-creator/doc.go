// Package main provides the entry point for the video creator service.
//
// The service accepts an audio track, an ordered set of images and
// optional subtitle text over HTTP, and returns an MP4 rendered by FFmpeg
// in which each image is shown for an equal share of the audio.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT
//  2. Configuration Loading: Defaults, then CONFIG_FILE (TOML), then environment
//  3. Session Store: Locks WORK_DIR and reports directories left by a previous run
//  4. Component Initialization:
//     - Transcoder: Checks ffmpeg and ffprobe, sized by TRANSCODE_CONCURRENCY
//     - Image Optimizer: Starts libvips when OPTIMIZE_IMAGES is set
//     - Janitor: Removes sessions older than SESSION_RETENTION
//     - Metrics Collector: Publishes session counts and work dir size
//  5. HTTP Server Setup: Routes, logging and metrics middleware
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Endpoints
//
//	GET  /              API description
//	POST /create-video  multipart upload: audio, images, subtitle_text
//	GET  /health        health with session count (also /healthz)
//	GET  /livez         liveness probe
//	GET  /readyz        readiness probe; 503 until FFmpeg is found
//	GET  /version       build information
//	GET  /metrics       Prometheus metrics on METRICS_PORT
//
// # Usage
//
//	WORK_DIR=/var/lib/video-creator \
//	TRANSCODE_TIMEOUT=10m \
//	video-creator
//
//	curl -F audio=@song.mp3 -F images=@a.png -F images=@b.jpg \
//	     -F subtitle_text='First line. Second line.' \
//	     -o video.mp4 http://localhost:8080/create-video
package main
