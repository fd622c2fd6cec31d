package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Outcome labels for finished actions
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector collects and aggregates staking action metrics
type Collector struct {
	// Action counts keyed by action then outcome
	actionCounts   map[string]map[string]*uint64
	actionCountsMu sync.RWMutex

	// Action latencies by action (stored as nanoseconds)
	latencies   map[string]*LatencyHistogram
	latenciesMu sync.RWMutex

	inFlight  int64
	connected int64

	startTime time.Time
}

// LatencyHistogram tracks action latencies in buckets. Actions wait for
// mined receipts, so the buckets span seconds to minutes.
type LatencyHistogram struct {
	buckets [10]uint64
	sum     uint64 // nanoseconds
	count   uint64
	mu      sync.Mutex
}

// bucket boundaries in milliseconds
var bucketBoundaries = []int64{100, 500, 1000, 5000, 15000, 30000, 60000, 120000, 300000}

var bucketLabels = []string{
	"0-100ms", "100-500ms", "500ms-1s", "1-5s", "5-15s",
	"15-30s", "30-60s", "1-2m", "2-5m", "5m+",
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		actionCounts: make(map[string]map[string]*uint64),
		latencies:    make(map[string]*LatencyHistogram),
		startTime:    time.Now(),
	}
}

// RecordAction counts a finished action under outcome
func (c *Collector) RecordAction(action, outcome string) {
	c.actionCountsMu.Lock()
	byOutcome, ok := c.actionCounts[action]
	if !ok {
		byOutcome = make(map[string]*uint64)
		c.actionCounts[action] = byOutcome
	}
	counter, ok := byOutcome[outcome]
	if !ok {
		var val uint64
		counter = &val
		byOutcome[outcome] = counter
	}
	c.actionCountsMu.Unlock()

	atomic.AddUint64(counter, 1)
}

// RecordLatency records how long an action took
func (c *Collector) RecordLatency(action string, duration time.Duration) {
	c.latenciesMu.Lock()
	hist, exists := c.latencies[action]
	if !exists {
		hist = &LatencyHistogram{}
		c.latencies[action] = hist
	}
	c.latenciesMu.Unlock()

	hist.Record(duration)
}

// Record records a latency value in the histogram
func (h *LatencyHistogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ms := d.Milliseconds()

	bucketIdx := len(bucketBoundaries) // overflow
	for i, boundary := range bucketBoundaries {
		if ms < boundary {
			bucketIdx = i
			break
		}
	}

	h.buckets[bucketIdx]++
	h.sum += uint64(d.Nanoseconds())
	h.count++
}

// IncrementInFlight marks an action as started
func (c *Collector) IncrementInFlight() {
	atomic.AddInt64(&c.inFlight, 1)
}

// DecrementInFlight marks an action as finished
func (c *Collector) DecrementInFlight() {
	atomic.AddInt64(&c.inFlight, -1)
}

// SetConnected records whether a wallet is connected
func (c *Collector) SetConnected(connected bool) {
	var v int64
	if connected {
		v = 1
	}
	atomic.StoreInt64(&c.connected, v)
}

// Metrics represents the current state of all metrics
type Metrics struct {
	Uptime          string                       `json:"uptime"`
	UptimeSeconds   float64                      `json:"uptime_seconds"`
	ActionCounts    map[string]map[string]uint64 `json:"action_counts"`
	ActionLatencies map[string]LatencyStats      `json:"action_latencies"`
	InFlight        int64                        `json:"in_flight"`
	Connected       bool                         `json:"connected"`
	CollectedAt     time.Time                    `json:"collected_at"`
}

// LatencyStats contains latency statistics for an action
type LatencyStats struct {
	Count   uint64            `json:"count"`
	SumMs   float64           `json:"sum_ms"`
	AvgMs   float64           `json:"avg_ms"`
	Buckets map[string]uint64 `json:"buckets"`
}

// GetMetrics returns the current metrics as a Metrics struct
func (c *Collector) GetMetrics() *Metrics {
	uptime := time.Since(c.startTime)

	counts := make(map[string]map[string]uint64)
	c.actionCountsMu.RLock()
	for action, byOutcome := range c.actionCounts {
		out := make(map[string]uint64, len(byOutcome))
		for outcome, counter := range byOutcome {
			out[outcome] = atomic.LoadUint64(counter)
		}
		counts[action] = out
	}
	c.actionCountsMu.RUnlock()

	latencies := make(map[string]LatencyStats)
	c.latenciesMu.RLock()
	for action, hist := range c.latencies {
		hist.mu.Lock()
		stats := LatencyStats{
			Count:   hist.count,
			SumMs:   float64(hist.sum) / float64(time.Millisecond),
			Buckets: make(map[string]uint64),
		}
		if hist.count > 0 {
			stats.AvgMs = float64(hist.sum) / float64(hist.count) / float64(time.Millisecond)
		}
		for i, count := range hist.buckets {
			if count > 0 {
				stats.Buckets[bucketLabels[i]] = count
			}
		}
		hist.mu.Unlock()
		latencies[action] = stats
	}
	c.latenciesMu.RUnlock()

	return &Metrics{
		Uptime:          uptime.Round(time.Second).String(),
		UptimeSeconds:   uptime.Seconds(),
		ActionCounts:    counts,
		ActionLatencies: latencies,
		InFlight:        atomic.LoadInt64(&c.inFlight),
		Connected:       atomic.LoadInt64(&c.connected) == 1,
		CollectedAt:     time.Now(),
	}
}

// GetMetricsJSON returns the current metrics as JSON
func (c *Collector) GetMetricsJSON() ([]byte, error) {
	return json.Marshal(c.GetMetrics())
}

// Reset resets all metrics (useful for testing)
func (c *Collector) Reset() {
	c.actionCountsMu.Lock()
	c.actionCounts = make(map[string]map[string]*uint64)
	c.actionCountsMu.Unlock()

	c.latenciesMu.Lock()
	c.latencies = make(map[string]*LatencyHistogram)
	c.latenciesMu.Unlock()

	atomic.StoreInt64(&c.inFlight, 0)
	atomic.StoreInt64(&c.connected, 0)
	c.startTime = time.Now()
}
