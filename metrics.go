package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram tracked by [Metrics].
type MetricID uint16

const (
	// MetricSessionStarted counts sessions created by Start.
	MetricSessionStarted MetricID = iota
	// MetricSessionResumed counts successful Resume calls, cache hits included.
	MetricSessionResumed
	// MetricResumeCacheHit counts Resume calls answered from the manager cache.
	MetricResumeCacheHit
	// MetricResumeNotFound counts Resume calls for ids absent from storage.
	MetricResumeNotFound
	// MetricResumeInvalidID counts Resume calls with malformed ids.
	MetricResumeInvalidID
	// MetricDecodeFailure counts stored blobs that failed to decode.
	MetricDecodeFailure
	// MetricSessionDeleted counts Delete calls that reached storage.
	MetricSessionDeleted
	// MetricSessionRotated counts successful id rotations.
	MetricSessionRotated
	// MetricSessionSaved counts sessions written to storage.
	MetricSessionSaved
	// MetricSaveFailure counts sessions that failed to serialize or write.
	MetricSaveFailure
	// MetricStorageFailure counts backend errors across all operations.
	MetricStorageFailure
	// MetricHandleIssued counts signed handles minted.
	MetricHandleIssued
	// MetricHandleRejected counts handles that failed verification.
	MetricHandleRejected
	// MetricHandleThrottled counts handle attempts refused by the rejection throttle.
	MetricHandleThrottled
	// MetricSaveAborted counts Save calls stopped at the first failure.
	MetricSaveAborted
	// MetricSaveLatency is the latency histogram of Save.
	MetricSaveLatency
	// MetricResumeLatency is the latency histogram of storage-backed Resume.
	MetricResumeLatency
	// MetricLoadedSessions is the gauge of sessions held in the registry.
	MetricLoadedSessions
	// MetricLastSaveFailures is the gauge of sessions that failed in the most
	// recent Save.
	MetricLastSaveFailures
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by goSession APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
	gauges        [metricIDCount]int64
}

// MetricsSnapshot is a point-in-time copy of all counters, histograms and
// gauges.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	Gauges     map[MetricID]int64
}

// NewMetrics returns a Metrics set configured by cfg. A disabled set accepts
// every call and records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id by one.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in histogram id. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Set stores v in gauge id. Counter and histogram ids are ignored.
func (m *Metrics) Set(id MetricID, v int64) {
	if m == nil || !m.enabled || !isGauge(id) {
		return
	}
	atomic.StoreInt64(&m.gauges[id], v)
}

// Gauge returns the current value of gauge id.
func (m *Metrics) Gauge(id MetricID) int64 {
	if m == nil || !isGauge(id) {
		return 0
	}
	return atomic.LoadInt64(&m.gauges[id])
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot returns empty maps when metrics are disabled. Histograms are
// present only when latency recording is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Gauges:     map[MetricID]int64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
		Gauges:     make(map[MetricID]int64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isGauge(id) {
			s.Gauges[id] = atomic.LoadInt64(&m.gauges[id])
			continue
		}
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricSaveLatency, MetricResumeLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricSaveLatency || id == MetricResumeLatency
}

func isGauge(id MetricID) bool {
	return id == MetricLoadedSessions || id == MetricLastSaveFailures
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
