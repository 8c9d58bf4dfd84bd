// Package otel provides OpenTelemetry metric exporter bindings for the
// synchronizer's counters and histograms.
//
// [New] registers Int64ObservableCounter instruments for each counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads
// [authsync.Synchronizer.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate synchronizer state.
package otel
