package metrics

import (
	"strings"
	"sync"
	"testing"
)

func TestCollector_RecordExecution(t *testing.T) {
	c := NewCollector()

	c.RecordExecution(ExecutionMetrics{DurationUs: 100, CacheHit: true, Success: true, HostCalls: 3, MutationCount: 1, EventCount: 2, MemoryUsedBytes: 1024})
	c.RecordExecution(ExecutionMetrics{DurationUs: 200, CacheHit: false, Success: false, ErrorCode: "TIMEOUT", HostCalls: 5, MemoryUsedBytes: 2048})
	c.RecordExecution(ExecutionMetrics{DurationUs: 50, CacheHit: true, Success: false, ErrorCode: "TIMEOUT"})

	s := c.Snapshot()

	if s.TotalExecutions != 3 {
		t.Errorf("TotalExecutions = %d, want 3", s.TotalExecutions)
	}
	if s.SuccessExecutions != 1 {
		t.Errorf("SuccessExecutions = %d, want 1", s.SuccessExecutions)
	}
	if s.ErrorExecutions != 2 {
		t.Errorf("ErrorExecutions = %d, want 2", s.ErrorExecutions)
	}
	if s.ErrorsByCode["TIMEOUT"] != 2 {
		t.Errorf("ErrorsByCode[TIMEOUT] = %d, want 2", s.ErrorsByCode["TIMEOUT"])
	}
	if s.CacheHits != 2 || s.CacheMisses != 1 {
		t.Errorf("CacheHits/Misses = %d/%d, want 2/1", s.CacheHits, s.CacheMisses)
	}
	if s.PeakMemoryBytes != 2048 {
		t.Errorf("PeakMemoryBytes = %d, want 2048", s.PeakMemoryBytes)
	}
	if s.TotalHostCalls != 8 {
		t.Errorf("TotalHostCalls = %d, want 8", s.TotalHostCalls)
	}
	if got, want := s.CacheHitRate(), 2.0/3.0; got != want {
		t.Errorf("CacheHitRate = %v, want %v", got, want)
	}
	if got, want := s.AvgExecutionTimeUs(), (100.0+200.0+50.0)/3.0; got != want {
		t.Errorf("AvgExecutionTimeUs = %v, want %v", got, want)
	}
}

func TestCollector_RecordError(t *testing.T) {
	c := NewCollector()
	c.RecordError("INTERNAL_ERROR")
	c.RecordError("INTERNAL_ERROR")

	s := c.Snapshot()
	if s.TotalExecutions != 2 || s.ErrorExecutions != 2 {
		t.Errorf("got TotalExecutions=%d ErrorExecutions=%d, want 2/2", s.TotalExecutions, s.ErrorExecutions)
	}
	if s.ErrorsByCode["INTERNAL_ERROR"] != 2 {
		t.Errorf("ErrorsByCode[INTERNAL_ERROR] = %d, want 2", s.ErrorsByCode["INTERNAL_ERROR"])
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.RecordExecution(ExecutionMetrics{Success: true})
	c.RecordError("INTERNAL_ERROR")

	s := c.Snapshot()
	if s.TotalExecutions != 0 {
		t.Errorf("nil collector snapshot TotalExecutions = %d, want 0", s.TotalExecutions)
	}
	if s.ErrorsByCode == nil {
		t.Error("nil collector snapshot ErrorsByCode should be a non-nil empty map")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector()
	c.RecordExecution(ExecutionMetrics{Success: true})

	s1 := c.Snapshot()
	c.RecordExecution(ExecutionMetrics{Success: true})
	c.RecordExecution(ExecutionMetrics{Success: false, ErrorCode: "TIMEOUT"})

	if s1.TotalExecutions != 1 {
		t.Errorf("s1.TotalExecutions = %d, want 1 (snapshot should be frozen)", s1.TotalExecutions)
	}

	s2 := c.Snapshot()
	if s2.TotalExecutions != 3 {
		t.Errorf("s2.TotalExecutions = %d, want 3", s2.TotalExecutions)
	}
}

func TestCollector_ErrorsByCodeIsolation(t *testing.T) {
	c := NewCollector()
	c.RecordExecution(ExecutionMetrics{Success: false, ErrorCode: "TIMEOUT"})

	s := c.Snapshot()
	s.ErrorsByCode["TIMEOUT"] = 999
	s.ErrorsByCode["injected"] = 1

	s2 := c.Snapshot()
	if s2.ErrorsByCode["TIMEOUT"] != 1 {
		t.Errorf("ErrorsByCode[TIMEOUT] = %d, want 1 (collector should be isolated from snapshot mutation)", s2.ErrorsByCode["TIMEOUT"])
	}
	if _, exists := s2.ErrorsByCode["injected"]; exists {
		t.Error("ErrorsByCode should not contain injected key from snapshot mutation")
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector()
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.RecordExecution(ExecutionMetrics{Success: true, HostCalls: 1})
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.TotalExecutions != want {
		t.Errorf("TotalExecutions = %d, want %d", s.TotalExecutions, want)
	}
	if s.TotalHostCalls != want {
		t.Errorf("TotalHostCalls = %d, want %d", s.TotalHostCalls, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector()
	s := c.Snapshot()

	if s.TotalExecutions != 0 || s.SuccessExecutions != 0 || s.ErrorExecutions != 0 {
		t.Error("fresh collector should have zero execution counters")
	}
	if s.CacheHits != 0 || s.CacheMisses != 0 {
		t.Error("fresh collector should have zero cache counters")
	}
	if len(s.ErrorsByCode) != 0 {
		t.Errorf("fresh collector ErrorsByCode should be empty, got %v", s.ErrorsByCode)
	}
	if s.CacheHitRate() != 0 || s.AvgExecutionTimeUs() != 0 {
		t.Error("fresh collector derived rates should be zero, not NaN")
	}
}

func TestSnapshot_Text(t *testing.T) {
	c := NewCollector()
	c.RecordExecution(ExecutionMetrics{DurationUs: 100, CacheHit: true, Success: true})
	c.RecordExecution(ExecutionMetrics{Success: false, ErrorCode: "TIMEOUT"})

	text := c.Snapshot().Text()
	for _, want := range []string{"executions_total 2", "executions_success 1", "executions_error 1", "cache_hit_rate", "avg_execution_time_us", `executions_error_by_code{code=TIMEOUT} 1`} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q; got:\n%s", want, text)
		}
	}
}
