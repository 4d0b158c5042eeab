// Package session allocates and reclaims the per-request working directories
// used while a video is being assembled.
//
// A [Store] owns one work root. Each call to [Store.Open] creates a directory
// named after a random UUID and records it in the store's registry together
// with its creation time. [Store.Release] removes the directory and the
// registry entry; it is idempotent so the owning request and the retention
// janitor may both call it for the same session.
//
// The store takes an advisory lock on the work root so that two processes
// never sweep each other's sessions. Directories left behind by a previous
// process are reported by [Store.Orphans].
package session
