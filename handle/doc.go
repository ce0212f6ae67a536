// Package handle issues and verifies signed session handles: short JWTs that
// carry a session id in the "sid" claim, so the raw id can be handed to a
// client with an expiry and an integrity check attached.
//
// # Architecture boundaries
//
// This package signs and parses tokens only. It does not look up sessions;
// the Manager resolves a parsed id through its normal resume path.
//
// # What this package must NOT do
//
//   - Accept tokens signed with an algorithm other than the configured one.
//   - Return an id that is not a well formed session id.
package handle
