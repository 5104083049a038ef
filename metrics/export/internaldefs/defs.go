package internaldefs

import (
	revsense "github.com/Henil-Prajapati/RevSense"
)

// CounterDef names one gate counter for exporters. Outcome is the label
// value used when exporters fold the counters into one instrument.
type CounterDef struct {
	ID      revsense.MetricID
	Name    string
	Outcome string
	Help    string
}

// HistogramDef names one gate histogram for exporters.
type HistogramDef struct {
	ID   revsense.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: revsense.MetricOutOfScope, Name: "revsense_out_of_scope_total", Outcome: "out_of_scope", Help: "Requests outside the gate matcher."},
	{ID: revsense.MetricBypass, Name: "revsense_bypass_total", Outcome: "bypass", Help: "Requests admitted by the non-production bypass."},
	{ID: revsense.MetricPublic, Name: "revsense_public_total", Outcome: "public", Help: "Requests admitted as public routes."},
	{ID: revsense.MetricProtectAllowed, Name: "revsense_protect_allowed_total", Outcome: "allowed", Help: "Requests admitted by the protector."},
	{ID: revsense.MetricProtectDenied, Name: "revsense_protect_denied_total", Outcome: "denied", Help: "Requests rejected by the protector."},
	{ID: revsense.MetricProtectUnavailable, Name: "revsense_protect_unavailable_total", Outcome: "unavailable", Help: "Requests denied because the protector could not decide."},
}

var HistogramDefs = []HistogramDef{
	{ID: revsense.MetricProtectLatency, Name: "revsense_protect_latency_seconds", Help: "Protector latency histogram."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure
// counter, which is read from the gate rather than the snapshot.
const (
	AuditDroppedName = "revsense_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels are the bucket bounds as "le" label values,
// including +Inf.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets copies raw into a fixed 8-bucket array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
