// Package logging provides a simple leveled logging interface for the
// video creator service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (pipeline state transitions)
//   - INFO: General operational messages
//   - WARN: Warning conditions (probe fallbacks, skipped subtitles)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable and can
// be overridden at startup with [SetLevel]. [For] returns a scoped [Logger]
// that prefixes each line, used to tag everything a single upload session logs.
package logging
