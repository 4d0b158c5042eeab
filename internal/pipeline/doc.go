// Package pipeline turns one upload into one video.
//
// An [Orchestrator] moves each request through a fixed sequence of states:
//
//	validating -> session_open -> inputs_persisted -> subtitles_attempted
//	           -> transcoding -> artifact_extracted -> released
//
// with failed reachable from any non-terminal state. Validation runs before
// any storage is allocated. Once a session is open it is released on every
// path, success or failure, before [Orchestrator.Process] returns; the
// finished video is read into memory first so the result never refers to
// session storage.
//
// Caption synthesis and image pre-optimization are best effort. Their
// failures are logged and the request continues without captions or with
// the unoptimized frame. Transcoder failures, timeouts and storage errors
// end the request and are returned unchanged so the HTTP layer can map them
// to a status code.
package pipeline
