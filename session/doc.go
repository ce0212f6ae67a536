// Package session provides the in-memory session model and its compact binary
// encoding: case-insensitive nested [Bag] containers, the one-generation
// [FlashBag], and the [Session] aggregate that owns identifier generation.
//
// # Binary encoding
//
// Sessions are serialized as a versioned binary record (see [Encode]). The
// decoder is strict: any structural mismatch, unknown tag, non-canonical key,
// excessive nesting or trailing byte is rejected with [ErrDecode] and never
// yields a partially populated Session.
//
// # Architecture boundaries
//
// This package owns the data model only. It does NOT talk to storage, keep a
// registry of live sessions, or base64-wrap blobs; those responsibilities
// belong to the Manager in the root package.
//
// # What this package must NOT do
//
//   - Import goSession or storage (no upward imports).
//   - Fall back to a non-cryptographic random source.
//   - Accept non-scalar property values.
package session
