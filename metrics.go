package lio

import "github.com/ehrlich-b/lio/internal/telemetry"

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// re-exported from internal/telemetry so callers outside the module don't
// need to import it directly.
var LatencyBuckets = telemetry.LatencyBuckets

// Metrics tracks submission and completion statistics for every operation
// kind the runtime dispatches. Alias of telemetry.Metrics, which the
// runtime driver also imports to feed ObserveSubmit/ObserveCompletion.
type Metrics = telemetry.Metrics

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics { return telemetry.NewMetrics() }

// KindSnapshot is a point-in-time view of one operation kind's counters.
type KindSnapshot = telemetry.KindSnapshot

// MetricsSnapshot is a point-in-time snapshot of the runtime's metrics.
type MetricsSnapshot = telemetry.MetricsSnapshot

// Observer allows pluggable metrics collection by the runtime driver; it is
// the type of runtime.Config.Observer.
type Observer = telemetry.Observer

// NoOpObserver is a no-op Observer, the default when a runtime is
// constructed without an explicit one.
type NoOpObserver = telemetry.NoOpObserver

// MetricsObserver implements Observer using the built-in Metrics type.
type MetricsObserver = telemetry.MetricsObserver

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver { return telemetry.NewMetricsObserver(m) }
