package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	m := c.GetMetrics()

	if len(m.ActionCounts) != 0 {
		t.Errorf("expected no action counts, got %v", m.ActionCounts)
	}
	if m.InFlight != 0 || m.Connected {
		t.Errorf("unexpected initial gauges: %+v", m)
	}
}

func TestRecordAction(t *testing.T) {
	c := NewCollector()

	c.RecordAction("stake", OutcomeSuccess)
	c.RecordAction("stake", OutcomeSuccess)
	c.RecordAction("stake", OutcomeFailure)
	c.RecordAction("withdraw", OutcomeSuccess)

	m := c.GetMetrics()
	if got := m.ActionCounts["stake"][OutcomeSuccess]; got != 2 {
		t.Errorf("expected 2 successful stakes, got %d", got)
	}
	if got := m.ActionCounts["stake"][OutcomeFailure]; got != 1 {
		t.Errorf("expected 1 failed stake, got %d", got)
	}
	if got := m.ActionCounts["withdraw"][OutcomeSuccess]; got != 1 {
		t.Errorf("expected 1 withdraw, got %d", got)
	}
}

func TestRecordActionConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordAction("mint", OutcomeSuccess)
		}()
	}
	wg.Wait()

	if got := c.GetMetrics().ActionCounts["mint"][OutcomeSuccess]; got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestLatencyBuckets(t *testing.T) {
	c := NewCollector()

	c.RecordLatency("stake", 50*time.Millisecond)
	c.RecordLatency("stake", 2*time.Second)
	c.RecordLatency("stake", 10*time.Minute)

	stats := c.GetMetrics().ActionLatencies["stake"]
	if stats.Count != 3 {
		t.Fatalf("expected count 3, got %d", stats.Count)
	}
	for _, label := range []string{"0-100ms", "1-5s", "5m+"} {
		if stats.Buckets[label] != 1 {
			t.Errorf("bucket %s = %d, want 1 (buckets %v)", label, stats.Buckets[label], stats.Buckets)
		}
	}
	if stats.AvgMs <= 0 {
		t.Error("expected positive average")
	}
}

func TestInFlightAndConnected(t *testing.T) {
	c := NewCollector()

	c.IncrementInFlight()
	c.IncrementInFlight()
	c.DecrementInFlight()
	c.SetConnected(true)

	m := c.GetMetrics()
	if m.InFlight != 1 {
		t.Errorf("expected 1 in flight, got %d", m.InFlight)
	}
	if !m.Connected {
		t.Error("expected connected")
	}

	c.SetConnected(false)
	if c.GetMetrics().Connected {
		t.Error("expected disconnected")
	}
}

func TestGetMetricsJSON(t *testing.T) {
	c := NewCollector()
	c.RecordAction("approve", OutcomeSuccess)

	data, err := c.GetMetricsJSON()
	if err != nil {
		t.Fatalf("GetMetricsJSON failed: %v", err)
	}

	var decoded Metrics
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.ActionCounts["approve"][OutcomeSuccess] != 1 {
		t.Errorf("unexpected decoded counts: %v", decoded.ActionCounts)
	}
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.RecordAction("stake", OutcomeSuccess)
	c.RecordLatency("stake", time.Second)
	c.IncrementInFlight()
	c.SetConnected(true)

	c.Reset()

	m := c.GetMetrics()
	if len(m.ActionCounts) != 0 || len(m.ActionLatencies) != 0 {
		t.Errorf("expected empty metrics after reset: %+v", m)
	}
	if m.InFlight != 0 || m.Connected {
		t.Errorf("expected zero gauges after reset: %+v", m)
	}
}
