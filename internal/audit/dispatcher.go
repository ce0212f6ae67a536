package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher forwards session lifecycle events to a sink from a single
// worker goroutine, so a slow sink never blocks the manager beyond the
// buffer.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event

	stop    chan struct{}
	exited  chan struct{}
	abandon atomic.Bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	stopOnce  sync.Once
}

// NewDispatcher starts a dispatcher goroutine. It returns nil when cfg is
// disabled; a nil Dispatcher accepts every call as a no-op.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		ch:     make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer close(d.exited)

	for {
		// Stop wins over pending events so an abandoned drain is honored.
		select {
		case <-d.stop:
			d.drain()
			return
		default:
		}

		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes buffered events after stop. Once Close gives up waiting, the
// rest of the buffer is counted as dropped instead of delivered.
func (d *Dispatcher) drain() {
	for {
		if d.abandon.Load() {
			d.dropped.Add(uint64(len(d.ch)))
			return
		}
		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull a full buffer drops and counts the
// event; otherwise Emit waits for room until ctx is done. Events emitted
// after Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events and waits for buffered events to reach the
// sink. When ctx ends first, Close returns its error and events still
// buffered are dropped. Later calls wait for the same worker.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
	})

	select {
	case <-d.exited:
		return nil
	case <-ctx.Done():
		d.abandon.Store(true)
		return fmt.Errorf("audit drain: %w", ctx.Err())
	}
}

// Delivered returns the number of events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Dropped returns the number of events discarded because the buffer was
// full or the drain on Close was cut short.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
