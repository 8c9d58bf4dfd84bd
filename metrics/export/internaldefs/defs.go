package internaldefs

import (
	"github.com/mfackner/authsync"
)

// CounterDef maps one synchronizer counter to its exported name and help text.
type CounterDef struct {
	ID   authsync.MetricID
	Name string
	Help string
}

// HistogramDef maps one synchronizer histogram to its exported name and help
// text.
type HistogramDef struct {
	ID   authsync.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter catalog consumed by every exporter, so
// Prometheus and OTel expose identical series.
var CounterDefs = []CounterDef{
	{ID: authsync.MetricSignInSuccess, Name: "authsync_sign_in_success_total", Help: "Completed credential sign-ins."},
	{ID: authsync.MetricSignInFailure, Name: "authsync_sign_in_failure_total", Help: "Provider-rejected sign-ins."},
	{ID: authsync.MetricSignInRejected, Name: "authsync_sign_in_rejected_total", Help: "Sign-ins stopped by local credential validation."},
	{ID: authsync.MetricSignUpSuccess, Name: "authsync_sign_up_success_total", Help: "Sign-ups that returned an immediate session."},
	{ID: authsync.MetricSignUpPending, Name: "authsync_sign_up_pending_total", Help: "Sign-ups left awaiting email verification."},
	{ID: authsync.MetricSignUpFailure, Name: "authsync_sign_up_failure_total", Help: "Rejected sign-ups."},
	{ID: authsync.MetricSignOut, Name: "authsync_sign_out_total", Help: "Completed sign-outs."},
	{ID: authsync.MetricSignOutFailure, Name: "authsync_sign_out_failure_total", Help: "Sign-outs whose provider call failed."},
	{ID: authsync.MetricSnapshotApplied, Name: "authsync_snapshot_applied_total", Help: "Snapshot applications that changed state."},
	{ID: authsync.MetricSnapshotRedundant, Name: "authsync_snapshot_redundant_total", Help: "Idempotent re-applications of an equivalent snapshot."},
	{ID: authsync.MetricRedirectPerformed, Name: "authsync_redirect_performed_total", Help: "Navigations handed to the navigator."},
	{ID: authsync.MetricRedirectSuppressed, Name: "authsync_redirect_suppressed_total", Help: "Redirects absorbed inside the guard's grace window."},
	{ID: authsync.MetricChangeEvents, Name: "authsync_change_events_total", Help: "Session-change notifications received from the subscription."},
	{ID: authsync.MetricInitialFetchFailure, Name: "authsync_initial_fetch_failure_total", Help: "Initial session fetches that resolved with an error."},
	{ID: authsync.MetricInitialFetchDiscarded, Name: "authsync_initial_fetch_discarded_total", Help: "Initial fetch results discarded because an event superseded them."},
}

// HistogramDefs lists the exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: authsync.MetricSignInLatency, Name: "authsync_sign_in_latency_seconds", Help: "Sign-in round-trip latency histogram."},
}

// HistogramBounds are the upper bounds of the fixed latency buckets, in
// seconds, as Prometheus renders them.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
