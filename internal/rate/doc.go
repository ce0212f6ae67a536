// Package rate provides the Redis-backed fixed-window counter used to
// throttle clients that keep presenting rejected session handles.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:hr:<client>".
//
// # What this package must NOT do
//
//   - Decide which failures count; callers call Hit only for rejections.
//   - Be imported outside the goSession module.
package rate
