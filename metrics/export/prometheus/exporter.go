package prometheus

import (
	"net/http"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() revsense.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter is a [prometheus.Collector] over a gate's metrics.
type Exporter struct {
	source       metricsSource
	counters     []*prometheus.Desc
	histograms   []*prometheus.Desc
	auditDropped *prometheus.Desc
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter returns a collector reading from gate.
func NewExporter(gate *revsense.Gate) *Exporter {
	return NewExporterFromSource(gate)
}

// NewExporterFromSource returns a collector reading from any snapshot
// source.
func NewExporterFromSource(source metricsSource) *Exporter {
	e := &Exporter{
		source:       source,
		counters:     make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms:   make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for i, def := range internaldefs.CounterDefs {
		e.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		e.histograms[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return e
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range e.counters {
		ch <- d
	}
	for _, d := range e.histograms {
		ch <- d
	}
	ch <- e.auditDropped
}

// Collect emits nothing when the gate has metrics disabled.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e == nil || e.source == nil {
		return
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(e.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		sum := snapshot.HistogramSums[def.ID].Seconds()
		ch <- prometheus.MustNewConstHistogram(e.histograms[i], cumulative[len(cumulative)-1], sum, buckets)
	}

	ch <- prometheus.MustNewConstMetric(e.auditDropped, prometheus.CounterValue, float64(dropped))
}

// Handler serves the collector from a private registry.
func (e *Exporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
