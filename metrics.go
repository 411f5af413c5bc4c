package segheap

import "github.com/prometheus/client_golang/prometheus"

// allocatorMetrics is the Prometheus-shaped view of the counters the
// teacher's Allocator already tracked internally (allocs, bytes, mmaps)
// but never exported. Grounded on buildbarn-bb-storage's
// partitioningBlockAllocator, which exposes the same family of counters
// (allocations/releases totals plus derived gauges) for a block
// allocator's lifecycle. Registration is opt-in: Allocator implements
// prometheus.Collector directly so nothing self-registers against the
// default registry merely because this package was imported.
type allocatorMetrics struct {
	allocations   prometheus.Counter
	frees         prometheus.Counter
	heapExtends   prometheus.Counter
	checkFailures prometheus.Counter
	heapBytes     prometheus.Gauge
	freeBytes     prometheus.Gauge

	// last* mirror the cumulative Stats counters seen at the previous
	// observe() call, so each call can Add() only the delta; prometheus
	// counters have no Set().
	lastAllocations uint64
	lastFrees       uint64
	lastExtends     uint64
}

func newAllocatorMetrics() *allocatorMetrics {
	return &allocatorMetrics{
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "segheap",
			Name:      "allocations_total",
			Help:      "Number of successful Allocate/ZeroAllocate calls.",
		}),
		frees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "segheap",
			Name:      "frees_total",
			Help:      "Number of Free calls on a non-nil pointer.",
		}),
		heapExtends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "segheap",
			Name:      "heap_extends_total",
			Help:      "Number of times the heap was extended via the brk collaborator.",
		}),
		checkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "segheap",
			Name:      "checker_failures_total",
			Help:      "Number of individual consistency-check invariant failures observed.",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "segheap",
			Name:      "heap_bytes",
			Help:      "Current live heap size in bytes, including sentinels.",
		}),
		freeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "segheap",
			Name:      "free_bytes",
			Help:      "Sum of all free block sizes currently in the segregated index.",
		}),
	}
}

// observe refreshes the gauges and advances the monotonic counters to
// match the allocator's current Stats snapshot. Called after every
// Allocate/ZeroAllocate/Free once a.stats has already been updated.
func (am *allocatorMetrics) observe(a *Allocator) {
	s := a.Stats()
	am.heapBytes.Set(float64(s.HeapBytes))
	am.freeBytes.Set(float64(s.FreeBytes))

	am.allocations.Add(float64(s.Allocations - am.lastAllocations))
	am.lastAllocations = s.Allocations

	am.frees.Add(float64(s.Frees - am.lastFrees))
	am.lastFrees = s.Frees

	am.heapExtends.Add(float64(s.HeapExtends - am.lastExtends))
	am.lastExtends = s.HeapExtends
}

func (am *allocatorMetrics) observeCheckFailures(n int) {
	am.checkFailures.Add(float64(n))
}

// Describe implements prometheus.Collector.
func (a *Allocator) Describe(ch chan<- *prometheus.Desc) {
	if a.metrics == nil {
		return
	}
	a.metrics.allocations.Describe(ch)
	a.metrics.frees.Describe(ch)
	a.metrics.heapExtends.Describe(ch)
	a.metrics.checkFailures.Describe(ch)
	a.metrics.heapBytes.Describe(ch)
	a.metrics.freeBytes.Describe(ch)
}

// Collect implements prometheus.Collector. It refreshes the gauges from
// the current Stats snapshot before emitting, so a scrape always sees a
// consistent view even between Allocate/Free calls.
func (a *Allocator) Collect(ch chan<- prometheus.Metric) {
	if a.metrics == nil {
		return
	}
	s := a.Stats()
	a.metrics.heapBytes.Set(float64(s.HeapBytes))
	a.metrics.freeBytes.Set(float64(s.FreeBytes))
	a.metrics.allocations.Collect(ch)
	a.metrics.frees.Collect(ch)
	a.metrics.heapExtends.Collect(ch)
	a.metrics.checkFailures.Collect(ch)
	a.metrics.heapBytes.Collect(ch)
	a.metrics.freeBytes.Collect(ch)
}
