package goSession

import (
	"io"

	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle record delivered to an [AuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the manager's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events in a channel exposed by Events.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes each event as one JSON line.
type JSONWriterSink = audit.JSONWriterSink

// Audit event types.
const (
	AuditSessionStarted = audit.EventSessionStarted
	AuditSessionResumed = audit.EventSessionResumed
	AuditResumeFailed   = audit.EventResumeFailed
	AuditSessionDeleted = audit.EventSessionDeleted
	AuditSessionRotated = audit.EventSessionRotated
	AuditSaveFailed     = audit.EventSaveFailed
	AuditHandleRejected = audit.EventHandleRejected
)

// NewChannelSink returns a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
