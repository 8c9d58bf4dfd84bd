package authsync

import (
	"sync/atomic"
	"time"
)

// MetricID names one in-process counter or histogram.
type MetricID uint16

const (
	// MetricSignInSuccess counts completed credential sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts provider-rejected sign-ins.
	MetricSignInFailure
	// MetricSignInRejected counts sign-ins stopped by the credential validator.
	MetricSignInRejected
	// MetricSignUpSuccess counts sign-ups that returned an immediate session.
	MetricSignUpSuccess
	// MetricSignUpPending counts sign-ups left awaiting email verification.
	MetricSignUpPending
	// MetricSignUpFailure counts rejected sign-ups.
	MetricSignUpFailure
	// MetricSignOut counts completed sign-outs.
	MetricSignOut
	// MetricSignOutFailure counts sign-outs whose provider call failed
	// (swallowed from the caller's perspective).
	MetricSignOutFailure
	// MetricSnapshotApplied counts snapshot applications that changed state.
	MetricSnapshotApplied
	// MetricSnapshotRedundant counts idempotent re-applications of an
	// equivalent snapshot (the expected outcome of the stream/fetch race).
	MetricSnapshotRedundant
	// MetricRedirectPerformed counts navigations actually handed to the Navigator.
	MetricRedirectPerformed
	// MetricRedirectSuppressed counts redirect requests absorbed by the guard
	// inside the grace window.
	MetricRedirectSuppressed
	// MetricChangeEvents counts notifications received from the subscription.
	MetricChangeEvents
	// MetricInitialFetchFailure counts initial fetches that resolved with an error.
	MetricInitialFetchFailure
	// MetricInitialFetchDiscarded counts fetch results discarded because a
	// change event or credential operation superseded them in flight.
	MetricInitialFetchDiscarded
	// MetricSignInLatency is the sign-in round-trip latency histogram.
	MetricSignInLatency
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

// Metrics holds lock-free counters for the synchronizer. A nil or disabled
// Metrics is a no-op on every method.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only MetricSignInLatency carries a
// histogram; other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricSignInLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSignInLatency].buckets[i])
		}
		s.Histograms[MetricSignInLatency] = buckets
	}

	return s
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
