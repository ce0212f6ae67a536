package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no manager or metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument from a snapshot taken once per collection.
type observeFunc func(metric.Observer, goSession.MetricsSnapshot, uint64)

// OTelExporter publishes a manager's metrics as observable instruments:
// counters for session events, gauges for registry size and the last save
// outcome, and cumulative bucket gauges for latency histograms.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	observers    []observeFunc
}

// NewOTelExporter registers instruments on meter that read from manager.
func NewOTelExporter(meter metric.Meter, manager *goSession.Manager) (*OTelExporter, error) {
	if manager == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, manager)
}

// NewOTelExporterFromSource is NewOTelExporter for any metrics source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		observables = append(observables, ins)
		e.observers = append(e.observers, func(o metric.Observer, snap goSession.MetricsSnapshot, _ uint64) {
			o.ObserveInt64(ins, int64(snap.Counters[id]))
		})
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	observables = append(observables, dropped)
	e.observers = append(e.observers, func(o metric.Observer, _ goSession.MetricsSnapshot, n uint64) {
		o.ObserveInt64(dropped, int64(n))
	})

	for _, def := range internaldefs.GaugeDefs {
		id := def.ID
		ins, err := meter.Int64ObservableGauge(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create gauge %s: %w", def.Name, err)
		}
		observables = append(observables, ins)
		e.observers = append(e.observers, func(o metric.Observer, snap goSession.MetricsSnapshot, _ uint64) {
			o.ObserveInt64(ins, snap.Gauges[id])
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		observe, histObservables, err := histogramObserver(meter, def)
		if err != nil {
			return nil, err
		}
		observables = append(observables, histObservables...)
		e.observers = append(e.observers, observe)
	}

	registration, err := meter.RegisterCallback(e.collect, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration

	return e, nil
}

// histogramObserver creates one cumulative gauge per bucket plus a count
// gauge. Histograms missing from a snapshot are not observed.
func histogramObserver(meter metric.Meter, def internaldefs.HistogramDef) (observeFunc, []metric.Observable, error) {
	var buckets [8]metric.Int64ObservableGauge
	observables := make([]metric.Observable, 0, len(buckets)+1)

	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return nil, nil, fmt.Errorf("create histogram bucket %s: %w", name, err)
		}
		buckets[i] = ins
		observables = append(observables, ins)
	}

	countName := def.Name + "_count"
	count, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
	if err != nil {
		return nil, nil, fmt.Errorf("create histogram count %s: %w", countName, err)
	}
	observables = append(observables, count)

	id := def.ID
	observe := func(o metric.Observer, snap goSession.MetricsSnapshot, _ uint64) {
		raw, ok := snap.Histograms[id]
		if !ok {
			return
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i := range buckets {
			o.ObserveInt64(buckets[i], int64(cumulative[i]))
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
	}

	return observe, observables, nil
}

func (e *OTelExporter) collect(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	for _, observe := range e.observers {
		observe(o, snap, dropped)
	}
	return nil
}

// Close unregisters the collection callback. It is safe to call on a nil
// exporter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
