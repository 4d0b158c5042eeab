// Package handlers provides the HTTP surface of the video creator.
//
// It includes handlers for:
//   - The upload endpoint, POST /create-video
//   - A human-readable description of the API at /
//   - Health, liveness and readiness probes
//   - Version information and Prometheus metrics
//
// Every error response is JSON of the form {"error": ..., "details": ...}.
// Validation problems map to 400, an oversized body to 413, transcoder
// timeouts to 504 and all other failures to 500. FFmpeg's stderr is
// returned verbatim in details.
package handlers
