// Package telemetry holds the runtime's metrics machinery in a package the
// runtime driver can import directly; it lived at the module root until the
// driver needed to call into it, which would have made runtime import lio
// and lio import runtime.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/lio/internal/constants"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// kindCounters holds the submitted/completed/errored tallies for a single
// operation kind.
type kindCounters struct {
	Submitted atomic.Uint64
	Completed atomic.Uint64
	Errored   atomic.Uint64
	Bytes     atomic.Uint64
}

// Metrics tracks submission and completion statistics for every operation
// kind the runtime dispatches, plus a shared latency histogram spanning
// the time between Submit and Finish.
type Metrics struct {
	byKind [constants.NumOpKinds]kindCounters

	// Performance tracking
	TotalLatencyNs atomic.Uint64 // Cumulative operation latency in nanoseconds
	OpCount        atomic.Uint64 // Total completed operations

	// Latency histogram buckets (cumulative counts).
	// Each bucket[i] contains the count of operations with latency <= LatencyBuckets[i].
	LatencyHistogram [numLatencyBuckets]atomic.Uint64

	// Runtime lifecycle
	StartTime atomic.Int64 // Runtime start timestamp (UnixNano)
	StopTime  atomic.Int64 // Runtime stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordSubmit records that an operation of the given kind entered the
// submission path.
func (m *Metrics) RecordSubmit(kind constants.OpKind) {
	m.byKind[kind].Submitted.Add(1)
}

// RecordCompletion records a finished operation: its kind, the bytes it
// moved (0 if not byte-oriented), whether it succeeded, and the latency
// between Submit and Finish.
func (m *Metrics) RecordCompletion(kind constants.OpKind, bytes uint64, latencyNs uint64, success bool) {
	c := &m.byKind[kind]
	c.Completed.Add(1)
	if success {
		c.Bytes.Add(bytes)
	} else {
		c.Errored.Add(1)
	}
	m.recordLatency(latencyNs)
}

// recordLatency records operation latency and updates histogram buckets.
func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyHistogram[i].Add(1)
		}
	}
}

// Stop marks the runtime as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// KindSnapshot is a point-in-time view of one operation kind's counters.
type KindSnapshot struct {
	Kind      constants.OpKind
	Submitted uint64
	Completed uint64
	Errored   uint64
	Bytes     uint64
}

// MetricsSnapshot is a point-in-time snapshot of the runtime's metrics.
type MetricsSnapshot struct {
	ByKind [constants.NumOpKinds]KindSnapshot

	AvgLatencyNs uint64
	UptimeNs     uint64

	// Latency percentiles (in nanoseconds)
	LatencyP50Ns  uint64 // 50th percentile (median)
	LatencyP99Ns  uint64 // 99th percentile
	LatencyP999Ns uint64 // 99.9th percentile

	LatencyHistogram [numLatencyBuckets]uint64

	TotalSubmitted uint64
	TotalCompleted uint64
	TotalErrored   uint64
	TotalBytes     uint64
	ErrorRate      float64 // percentage of completed operations that errored
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var snap MetricsSnapshot

	for k := 0; k < int(constants.NumOpKinds); k++ {
		c := &m.byKind[k]
		ks := KindSnapshot{
			Kind:      constants.OpKind(k),
			Submitted: c.Submitted.Load(),
			Completed: c.Completed.Load(),
			Errored:   c.Errored.Load(),
			Bytes:     c.Bytes.Load(),
		}
		snap.ByKind[k] = ks
		snap.TotalSubmitted += ks.Submitted
		snap.TotalCompleted += ks.Completed
		snap.TotalErrored += ks.Errored
		snap.TotalBytes += ks.Bytes
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.TotalCompleted > 0 {
		snap.ErrorRate = float64(snap.TotalErrored) / float64(snap.TotalCompleted) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyHistogram[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyHistogram[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyHistogram[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	for k := 0; k < int(constants.NumOpKinds); k++ {
		c := &m.byKind[k]
		c.Submitted.Store(0)
		c.Completed.Store(0)
		c.Errored.Store(0)
		c.Bytes.Store(0)
	}
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyHistogram[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection by the runtime driver.
type Observer interface {
	// ObserveSubmit is called when an operation is accepted for submission.
	ObserveSubmit(kind constants.OpKind)

	// ObserveCompletion is called when an operation finishes.
	ObserveCompletion(kind constants.OpKind, bytes uint64, latencyNs uint64, success bool)
}

// NoOpObserver is a no-op implementation of Observer, the default when a
// runtime is constructed without an explicit one.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSubmit(constants.OpKind)                          {}
func (NoOpObserver) ObserveCompletion(constants.OpKind, uint64, uint64, bool) {}

// MetricsObserver implements Observer using the built-in Metrics type.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveSubmit(kind constants.OpKind) {
	o.metrics.RecordSubmit(kind)
}

func (o *MetricsObserver) ObserveCompletion(kind constants.OpKind, bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordCompletion(kind, bytes, latencyNs, success)
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
