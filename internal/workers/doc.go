/*
Package workers sizes and bounds the service's heavy work.

Transcoding is CPU-bound and memory hungry, so merges run behind a [Gate], a
counting semaphore sized at startup:

	gate := workers.NewGate(workers.Capacity(cfg.TranscodeConcurrency, 4))

	if err := gate.Acquire(ctx); err != nil {
		return err // caller went away while queued
	}
	defer gate.Release()

The default capacity is 1, so merges are serialized and requests queue behind
one another. Time spent queued is recorded in the
video_creator_transcoder_queue_wait_seconds histogram.

# Container CPU limits

[Count] and [ForCPU] size pools from runtime.GOMAXPROCS rather than
runtime.NumCPU, so a pod limited to 2 CPUs on a 64-core node gets 2 workers:

	// Wrong: Returns 64 (host CPUs), ignores container limit
	workers := runtime.NumCPU()

	// Correct: Returns 2 (respects container limit in Go 1.19+)
	workers := runtime.GOMAXPROCS(0)

Setting TRANSCODE_CONCURRENCY=0 uses this CPU-derived size.
*/
package workers
