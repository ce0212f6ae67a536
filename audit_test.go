package goSession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

func buildAuditTestManager(t *testing.T, st storage.Storage, sink AuditSink) *Manager {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	m, err := New().WithConfig(cfg).WithStorage(st).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m
}

func drain(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()

	out := make([]AuditEvent, 0, n)
	timeout := time.After(time.Second)
	for len(out) < n {
		select {
		case e := <-sink.Events():
			out = append(out, e)
		case <-timeout:
			t.Fatalf("expected %d events, got %d", n, len(out))
		}
	}
	return out
}

func TestAuditLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	sink := NewChannelSink(64)
	m := buildAuditTestManager(t, storage.NewMemory(), sink)

	s, _ := m.Start()
	if err := m.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.Rotate(ctx, s, ""); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if err := m.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.Delete(ctx, s.ID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, _ = m.Resume(ctx, validUnknownID())
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := drain(t, sink, 4)
	want := []string{AuditSessionStarted, AuditSessionRotated, AuditSessionDeleted, AuditResumeFailed}
	for i, e := range events {
		if e.EventType != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], e.EventType)
		}
		if e.ID == "" {
			t.Fatalf("event %d has no id", i)
		}
	}
	if events[1].Metadata["previous_id"] == "" {
		t.Fatalf("rotation event must carry the previous id")
	}
	if events[3].Success || events[3].Error == "" {
		t.Fatalf("resume failure must be recorded as failed: %+v", events[3])
	}
}

func TestAuditSaveFailure(t *testing.T) {
	ctx := context.Background()
	st := &faultyStorage{Memory: storage.NewMemory(), failWrites: map[string]bool{}}
	sink := NewChannelSink(8)
	m := buildAuditTestManager(t, st, sink)

	s, _ := m.Start()
	st.failWrites[s.ID()] = true
	if err := m.Save(ctx); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}

	events := drain(t, sink, 2)
	if events[1].EventType != AuditSaveFailed || events[1].SessionID != s.ID() {
		t.Fatalf("expected save failure event, got %+v", events[1])
	}
}

func TestAuditBackendDeleteFailures(t *testing.T) {
	ctx := context.Background()
	st := &faultyStorage{Memory: storage.NewMemory(), failDeletes: map[string]bool{}}
	sink := NewChannelSink(8)
	m := buildAuditTestManager(t, st, sink)

	s, _ := m.Start()
	if err := m.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	st.failDeletes[s.ID()] = true

	if err := m.Delete(ctx, s.ID()); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure from Delete, got %v", err)
	}
	if err := m.Rotate(ctx, s, ""); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure from Rotate, got %v", err)
	}

	events := drain(t, sink, 3)
	want := []string{AuditSessionStarted, AuditSessionDeleted, AuditSessionRotated}
	for i, e := range events {
		if e.EventType != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], e.EventType)
		}
	}
	for _, e := range events[1:] {
		if e.Success || e.Error == "" || e.SessionID != s.ID() {
			t.Fatalf("backend failure must be audited as failed for %s: %+v", s.ID(), e)
		}
	}
}

func TestAuditDisabledNoEvents(t *testing.T) {
	sink := NewChannelSink(8)
	m, err := New().WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	_, _ = m.Start()
	_ = m.Close(context.Background())

	select {
	case e := <-sink.Events():
		t.Fatalf("unexpected event %+v", e)
	default:
	}
	if m.AuditDropped() != 0 {
		t.Fatalf("expected no drops")
	}
}
