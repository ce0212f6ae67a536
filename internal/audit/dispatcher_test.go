package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), NewEvent(EventSessionStarted, "x", nil))
	_ = d.Close(context.Background())
	if d.Dropped() != 0 {
		t.Fatalf("expected 0 dropped on nil dispatcher")
	}
}

func TestDispatcherCloseDrainsBuffer(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), NewEvent(EventSessionStarted, "x", nil))
	}
	_ = d.Close(context.Background())

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}
	if got := d.Delivered(); got != 50 {
		t.Fatalf("expected Delivered 50, got %d", got)
	}

	d.Emit(context.Background(), NewEvent(EventSessionStarted, "x", nil))
	_ = d.Close(context.Background())
	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected no delivery after close, got %d", got)
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), NewEvent(EventSaveFailed, "x", errors.New("boom")))
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected dropped events with a blocked sink")
	}

	close(sink.gate)
	_ = d.Close(context.Background())
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	// First event is taken by the worker, second fills the buffer.
	d.Emit(context.Background(), NewEvent(EventSessionStarted, "a", nil))
	d.Emit(context.Background(), NewEvent(EventSessionStarted, "b", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, NewEvent(EventSessionStarted, "c", nil))
	if time.Since(start) > time.Second {
		t.Fatalf("Emit did not return after context cancellation")
	}
	if d.Dropped() != 0 {
		t.Fatalf("blocking mode must not count drops")
	}

	close(sink.gate)
	_ = d.Close(context.Background())
}

func TestDispatcherCloseGivesUpWhenContextEnds(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	// The worker blocks on the first event; the rest stay buffered.
	for i := 0; i < 4; i++ {
		d.Emit(context.Background(), NewEvent(EventSessionStarted, "x", nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	close(sink.gate)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if got := d.Delivered() + d.Dropped(); got != 4 {
		t.Fatalf("expected every event delivered or dropped, got %d", got)
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected buffered events dropped after abandoned drain")
	}
}

func TestNewEventFields(t *testing.T) {
	ok := NewEvent(EventSessionDeleted, "sid", nil)
	if !ok.Success || ok.Error != "" {
		t.Fatalf("expected success event, got %+v", ok)
	}
	if ok.ID == "" || ok.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", ok)
	}

	failed := NewEvent(EventSaveFailed, "sid", errors.New("disk full"))
	if failed.Success || failed.Error != "disk full" {
		t.Fatalf("expected failure event, got %+v", failed)
	}
	if failed.ID == ok.ID {
		t.Fatalf("expected unique event ids")
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), NewEvent(EventSessionStarted, "a", nil))
	sink.Emit(context.Background(), NewEvent(EventSessionRotated, "b", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.EventType != EventSessionRotated || e.SessionID != "b" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), NewEvent(EventSessionResumed, "a", nil))

	select {
	case e := <-sink.Events():
		if e.SessionID != "a" {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatalf("expected buffered event")
	}
}
