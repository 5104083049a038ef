// Package prometheus exposes gate metrics through a client_golang
// [prometheus.Collector].
//
// Counters are published as revsense_*_total; the protector latency is
// revsense_protect_latency_seconds. Values are read from the gate snapshot
// on every scrape.
//
// The collector is never registered globally; [Exporter.Handler] serves it
// from a private registry, or callers register it themselves.
package prometheus
