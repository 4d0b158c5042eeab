/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

The work directory that holds upload sessions may live on a network mount. This
package wraps the reads the pipeline performs after the transcoder exits
(stat of the output, reading the whole output into memory) with retry logic
for ESTALE (stale file handle) errors.

# Key Features

  - Automatic retry with exponential backoff for NFS ESTALE errors
  - Configurable retry attempts (default: 3) and backoff timings
  - Transparent fallback to standard os operations for non-NFS errors

# Usage

	info, err := filesystem.StatWithRetry(outputPath, filesystem.DefaultRetryConfig())
	data, err := filesystem.ReadFileWithRetry(outputPath, filesystem.DefaultRetryConfig())
*/
package filesystem
