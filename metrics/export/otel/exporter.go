package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RequestsName is the counter of gate outcomes, split by the outcome
	// attribute.
	RequestsName     = "revsense.gate.requests"
	AuditDroppedName = "revsense.gate.audit.dropped"

	OutcomeKey = attribute.Key("outcome")
	BoundKey   = attribute.Key("le")
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() revsense.MetricsSnapshot
	AuditDropped() uint64
}

type outcome struct {
	id    revsense.MetricID
	attrs metric.ObserveOption
}

type latency struct {
	id      revsense.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes gate metrics as OTel observable instruments, read from
// one gate snapshot per collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	requests     metric.Int64ObservableCounter
	outcomes     []outcome
	latencies    []latency
	bounds       []metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, gate *revsense.Gate) (*Exporter, error) {
	if gate == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, gate)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}

	var err error
	e.requests, err = meter.Int64ObservableCounter(RequestsName,
		metric.WithDescription("Requests seen by the gate, by outcome."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RequestsName, err)
	}
	for _, def := range internaldefs.CounterDefs {
		e.outcomes = append(e.outcomes, outcome{
			id:    def.ID,
			attrs: metric.WithAttributeSet(attribute.NewSet(OutcomeKey.String(def.Outcome))),
		})
	}

	for _, label := range internaldefs.HistogramBoundLabels {
		e.bounds = append(e.bounds, metric.WithAttributeSet(attribute.NewSet(BoundKey.String(label))))
	}
	observables := []metric.Observable{e.requests}
	for _, def := range internaldefs.HistogramDefs {
		base := otelName(def.Name)
		l := latency{id: def.ID}
		if l.buckets, err = meter.Int64ObservableGauge(base+".bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
		); err != nil {
			return nil, fmt.Errorf("create %s.bucket: %w", base, err)
		}
		if l.count, err = meter.Int64ObservableGauge(base+".count",
			metric.WithDescription(def.Help+" Total samples."),
		); err != nil {
			return nil, fmt.Errorf("create %s.count: %w", base, err)
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, l.buckets, l.count)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedName, err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, oc := range e.outcomes {
		o.ObserveInt64(e.requests, int64(snap.Counters[oc.id]), oc.attrs)
	}
	for _, l := range e.latencies {
		raw, ok := snap.Histograms[l.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, attrs := range e.bounds {
			o.ObserveInt64(l.buckets, int64(cumulative[i]), attrs)
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// otelName maps a Prometheus-style name to dotted form:
// revsense_protect_latency_seconds -> revsense.protect.latency.
func otelName(promName string) string {
	return strings.ReplaceAll(strings.TrimSuffix(promName, "_seconds"), "_", ".")
}
