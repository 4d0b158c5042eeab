// Package middleware provides HTTP middleware for the video creator.
//
// It includes:
//   - Request logging in W3C Extended Log Format, tagged with the session ID
//   - Prometheus request metrics with bounded path labels
//   - Configurable filtering for health checks
package middleware
