package revsense

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies a gate counter or histogram.
type MetricID uint16

const (
	// MetricOutOfScope counts requests the matcher excluded.
	MetricOutOfScope MetricID = iota
	// MetricBypass counts requests admitted by the non-production bypass.
	MetricBypass
	// MetricPublic counts requests admitted as public routes.
	MetricPublic
	// MetricProtectAllowed counts requests the protector admitted.
	MetricProtectAllowed
	// MetricProtectDenied counts requests the protector rejected.
	MetricProtectDenied
	// MetricProtectUnavailable counts protector outages.
	MetricProtectUnavailable
	// MetricProtectLatency is the protector latency histogram.
	MetricProtectLatency
	metricIDCount
)

const cacheLineSize = 64

// latencyBounds are the inclusive upper bounds of the first seven latency
// buckets; the eighth is +Inf.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

type latencyHistogram struct {
	buckets [histBucketCount]atomic.Uint64
	sum     atomic.Int64
}

func (h *latencyHistogram) observe(d time.Duration) {
	i := sort.Search(len(latencyBounds), func(i int) bool { return d <= latencyBounds[i] })
	h.buckets[i].Add(1)
	h.sum.Add(int64(d))
}

// Metrics holds lock-free decision counters and the protector latency
// histogram. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	protect       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms hold
// non-cumulative bucket counts; HistogramSums the total observed time.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
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

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount || id == MetricProtectLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in the latency histogram for id. Only
// [MetricProtectLatency] carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricProtectLatency {
		return
	}
	m.protect.observe(d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricProtectLatency {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.protect.buckets[i].Load()
		}
		s.Histograms[MetricProtectLatency] = buckets
		s.HistogramSums[MetricProtectLatency] = time.Duration(m.protect.sum.Load())
	}
	return s
}

func decisionMetric(d Decision) MetricID {
	switch d {
	case DecisionOutOfScope:
		return MetricOutOfScope
	case DecisionBypass:
		return MetricBypass
	case DecisionPublic:
		return MetricPublic
	default:
		return metricIDCount
	}
}
