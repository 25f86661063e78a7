// Package metrics provides per-execution metrics collection for the
// runtime engine. The Collector accumulates counters across handler
// invocations; it is a leaf package with no internal dependencies.
//
// Adapted from the teacher's ingestion-pipeline Collector: the
// lifecycle/executor/storage dimensions are replaced with the guest
// runtime's own per-execution shape (duration, cache hit, host calls,
// error code), but the locking discipline — a short-held sync.Mutex
// around plain counters and maps, nil-receiver-safe Inc/Record methods
// — is carried over unchanged.
package metrics

import "sync"

// ExecutionMetrics is the per-call record the engine façade produces
// for every execute_handler/resume_handler invocation, grounded on the
// original's metrics.rs ExecutionMetrics struct (§3.1 of the expanded
// spec).
type ExecutionMetrics struct {
	DurationUs      int64
	CacheHit        bool
	Success         bool
	ErrorCode       string // empty when Success is true
	HostCalls       int
	MutationCount   int
	EventCount      int
	MemoryUsedBytes int64
}

// Snapshot is an immutable point-in-time view of the aggregator.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	TotalExecutions   int64
	SuccessExecutions int64
	ErrorExecutions   int64
	ErrorsByCode      map[string]int64

	CacheHits   int64
	CacheMisses int64

	TotalDurationUs int64
	PeakMemoryBytes int64

	TotalHostCalls     int64
	TotalMutations     int64
	TotalEvents        int64
}

// CacheHitRate returns the fraction of executions served from cache,
// or 0 if no executions have been recorded.
func (s Snapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// AvgExecutionTimeUs returns the mean execution duration in
// microseconds, or 0 if no executions have been recorded.
func (s Snapshot) AvgExecutionTimeUs() float64 {
	if s.TotalExecutions == 0 {
		return 0
	}
	return float64(s.TotalDurationUs) / float64(s.TotalExecutions)
}

// Text renders the snapshot in the runtime's plain "key value" per
// line metrics format (§6 of the expanded spec): grep-friendly, no
// Prometheus family-name ceremony, matching how the rest of this
// codebase renders stats for CLI consumption.
func (s Snapshot) Text() string {
	var b textBuilder
	b.line("executions_total", s.TotalExecutions)
	b.line("executions_success", s.SuccessExecutions)
	b.line("executions_error", s.ErrorExecutions)
	for code, n := range s.ErrorsByCode {
		b.labeledLine("executions_error_by_code", code, n)
	}
	b.line("cache_hits", s.CacheHits)
	b.line("cache_misses", s.CacheMisses)
	b.floatLine("cache_hit_rate", s.CacheHitRate())
	b.floatLine("avg_execution_time_us", s.AvgExecutionTimeUs())
	b.line("peak_memory_bytes", s.PeakMemoryBytes)
	b.line("host_calls_total", s.TotalHostCalls)
	b.line("mutations_total", s.TotalMutations)
	b.line("events_total", s.TotalEvents)
	return b.String()
}

// Collector accumulates execution metrics across handler invocations.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe so
// callers may pass a nil *Collector when metrics aren't configured.
type Collector struct {
	mu sync.Mutex

	totalExecutions   int64
	successExecutions int64
	errorExecutions   int64
	errorsByCode      map[string]int64

	cacheHits   int64
	cacheMisses int64

	totalDurationUs int64
	peakMemoryBytes int64

	totalHostCalls int64
	totalMutations int64
	totalEvents    int64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{errorsByCode: make(map[string]int64)}
}

// RecordExecution folds one ExecutionMetrics record into the
// aggregator.
func (c *Collector) RecordExecution(m ExecutionMetrics) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalExecutions++
	if m.Success {
		c.successExecutions++
	} else {
		c.errorExecutions++
		if m.ErrorCode != "" {
			c.errorsByCode[m.ErrorCode]++
		}
	}

	if m.CacheHit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}

	c.totalDurationUs += m.DurationUs
	if m.MemoryUsedBytes > c.peakMemoryBytes {
		c.peakMemoryBytes = m.MemoryUsedBytes
	}

	c.totalHostCalls += int64(m.HostCalls)
	c.totalMutations += int64(m.MutationCount)
	c.totalEvents += int64(m.EventCount)
}

// RecordError is a convenience for call sites that only have an error
// code and no full ExecutionMetrics record (e.g. a façade-level
// programmer-error path that never reached the engine).
func (c *Collector) RecordError(code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalExecutions++
	c.errorExecutions++
	if code != "" {
		c.errorsByCode[code]++
	}
}

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{ErrorsByCode: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[string]int64, len(c.errorsByCode))
	for k, v := range c.errorsByCode {
		errs[k] = v
	}

	return Snapshot{
		TotalExecutions:   c.totalExecutions,
		SuccessExecutions: c.successExecutions,
		ErrorExecutions:   c.errorExecutions,
		ErrorsByCode:      errs,

		CacheHits:   c.cacheHits,
		CacheMisses: c.cacheMisses,

		TotalDurationUs: c.totalDurationUs,
		PeakMemoryBytes: c.peakMemoryBytes,

		TotalHostCalls: c.totalHostCalls,
		TotalMutations: c.totalMutations,
		TotalEvents:    c.totalEvents,
	}
}
