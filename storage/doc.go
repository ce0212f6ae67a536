// Package storage defines the byte-blob backend contract used by the session
// Manager and ships four implementations:
//
//   - [Memory]: map-backed, for tests and single-process tools.
//   - [Directory]: one "<id>.sess" file per session in a local directory.
//   - [Redis]: one hash per session in Redis, with optional expiry.
//   - [Sealed]: wraps any Storage and encrypts blobs with ChaCha20-Poly1305.
//
// # Architecture boundaries
//
// Backends store opaque blobs keyed by session id. They never decode blobs
// and never validate id format beyond what their medium requires; the
// Manager validates ids before calling in.
//
// # Errors
//
// Medium failures wrap [ErrBackend]. Reads of absent ids return
// [ErrNotFound]. Blobs that fail authentication return [ErrCorrupt].
package storage
