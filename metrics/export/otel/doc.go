// Package otel publishes gate metrics through an OpenTelemetry meter.
//
// Decision counters are folded into one observable counter,
// revsense.gate.requests, split by the "outcome" attribute. The protector
// latency histogram is exposed as cumulative bucket gauges keyed by "le"
// plus a count gauge. One callback reads the gate snapshot per collection.
// Callers own the MeterProvider.
package otel
