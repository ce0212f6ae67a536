package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// GaugeDef names one exported gauge.
type GaugeDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionStarted, Name: "gosession_started_total", Help: "Sessions created by Start."},
	{ID: goSession.MetricSessionResumed, Name: "gosession_resumed_total", Help: "Successful Resume calls."},
	{ID: goSession.MetricResumeCacheHit, Name: "gosession_resume_cache_hit_total", Help: "Resume calls answered from the in-process registry."},
	{ID: goSession.MetricResumeNotFound, Name: "gosession_resume_not_found_total", Help: "Resume calls for ids absent from storage."},
	{ID: goSession.MetricResumeInvalidID, Name: "gosession_resume_invalid_id_total", Help: "Resume calls rejected for malformed ids."},
	{ID: goSession.MetricDecodeFailure, Name: "gosession_decode_failure_total", Help: "Stored blobs that failed to decode."},
	{ID: goSession.MetricSessionDeleted, Name: "gosession_deleted_total", Help: "Sessions deleted from storage."},
	{ID: goSession.MetricSessionRotated, Name: "gosession_rotated_total", Help: "Session id rotations."},
	{ID: goSession.MetricSessionSaved, Name: "gosession_saved_total", Help: "Sessions written to storage."},
	{ID: goSession.MetricSaveFailure, Name: "gosession_save_failure_total", Help: "Sessions that failed to save."},
	{ID: goSession.MetricSaveAborted, Name: "gosession_save_aborted_total", Help: "Save calls stopped at the first failing session."},
	{ID: goSession.MetricStorageFailure, Name: "gosession_storage_failure_total", Help: "Storage backend errors."},
	{ID: goSession.MetricHandleIssued, Name: "gosession_handle_issued_total", Help: "Signed session handles issued."},
	{ID: goSession.MetricHandleRejected, Name: "gosession_handle_rejected_total", Help: "Session handles that failed verification."},
	{ID: goSession.MetricHandleThrottled, Name: "gosession_handle_throttled_total", Help: "Handle attempts refused by the rejection throttle."},
}

// GaugeDefs lists every gauge in export order.
var GaugeDefs = []GaugeDef{
	{ID: goSession.MetricLoadedSessions, Name: "gosession_loaded_sessions", Help: "Sessions held in the manager registry."},
	{ID: goSession.MetricLastSaveFailures, Name: "gosession_last_save_failures", Help: "Sessions that failed in the most recent Save."},
}

// HistogramDefs lists every latency histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricSaveLatency, Name: "gosession_save_latency_seconds", Help: "Save latency histogram."},
	{ID: goSession.MetricResumeLatency, Name: "gosession_resume_latency_seconds", Help: "Storage-backed Resume latency histogram."},
}

// HistogramBounds are the Prometheus le labels matching the core buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight bucket array, zero-filling
// missing entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
