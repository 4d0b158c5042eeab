// Package janitor reclaims session storage that outlived its request.
//
// Requests release their own sessions, so the janitor only matters when
// that did not happen: a crash mid-request, a panic that skipped cleanup, or
// directories left behind by a previous process. Each sweep releases every
// registered session older than the retention period and then every
// unregistered session directory on disk that is older still. Because
// session release is idempotent, a request finishing while the janitor
// sweeps it is harmless.
package janitor
