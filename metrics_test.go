package revsense

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricPublic)

	if got := m.Value(MetricPublic); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricProtectDenied)
	m.Inc(MetricProtectDenied)
	m.Inc(MetricProtectDenied)

	if got := m.Value(MetricProtectDenied); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricBypass)
	m.Observe(MetricProtectLatency, time.Millisecond)
	if m.Value(MetricBypass) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricProtectAllowed)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricProtectAllowed); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricProtectLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricProtectLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricPublic, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricPublic]; ok {
		t.Fatal("counter IDs must not carry histograms")
	}
	for _, v := range snap.Histograms[MetricProtectLatency] {
		if v != 0 {
			t.Fatalf("unexpected latency sample %v", snap.Histograms[MetricProtectLatency])
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricPublic)
	m.Inc(MetricProtectDenied)
	m.Inc(MetricProtectDenied)
	m.Observe(MetricProtectLatency, 2*time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricPublic] != 1 {
		t.Fatalf("expected MetricPublic=1 got %d", snap.Counters[MetricPublic])
	}
	if snap.Counters[MetricProtectDenied] != 2 {
		t.Fatalf("expected MetricProtectDenied=2 got %d", snap.Counters[MetricProtectDenied])
	}
	if _, ok := snap.Counters[MetricProtectLatency]; ok {
		t.Fatal("latency must not appear as a counter")
	}
	if snap.Histograms[MetricProtectLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricProtectLatency][0])
	}
}

func TestMetricsHistogramSum(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricProtectLatency, 3*time.Millisecond)
	m.Observe(MetricProtectLatency, 7*time.Millisecond)

	snap := m.Snapshot()
	if got := snap.HistogramSums[MetricProtectLatency]; got != 10*time.Millisecond {
		t.Fatalf("sum = %s, want 10ms", got)
	}
	if got := snap.Histograms[MetricProtectLatency]; got[0] != 1 || got[1] != 1 {
		t.Fatalf("buckets = %v", got)
	}
}

func TestMetricsIncIgnoresHistogramID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricProtectLatency)
	if got := m.Value(MetricProtectLatency); got != 0 {
		t.Fatalf("histogram ID counted as counter: %d", got)
	}
}
