// Package metrics declares the Prometheus metrics exported by the video
// creator service and a small [Collector] that periodically samples gauges
// which are expensive to keep up to date inline (active sessions, work
// directory size).
//
// Metrics are registered with promauto at package init. Call
// [InitializeMetrics] once at startup so every labelled series exists from
// the first scrape.
package metrics
