package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewPrometheusCollector(t *testing.T) {
	c := NewCollector()
	pc := NewPrometheusCollector(c)

	if pc.Collector() != c {
		t.Error("expected PrometheusCollector to wrap the given Collector")
	}
	if pc.Registry() == nil {
		t.Error("expected non-nil Prometheus registry")
	}
}

func TestActionLifecycle(t *testing.T) {
	c := NewCollector()
	pc := NewPrometheusCollector(c)

	pc.ActionStarted("stake")
	if got := getGaugeValue(t, pc.inFlight); got != 1 {
		t.Errorf("expected 1 in flight, got %f", got)
	}
	pc.ActionFinished("stake", nil, 3*time.Second)

	pc.ActionStarted("withdraw")
	pc.ActionFinished("withdraw", errors.New("reverted"), 500*time.Millisecond)

	if got := getGaugeValue(t, pc.inFlight); got != 0 {
		t.Errorf("expected 0 in flight, got %f", got)
	}
	if got := getCounterValue(t, pc.actionCount, "stake", OutcomeSuccess); got != 1 {
		t.Errorf("expected 1 successful stake, got %f", got)
	}
	if got := getCounterValue(t, pc.actionCount, "withdraw", OutcomeFailure); got != 1 {
		t.Errorf("expected 1 failed withdraw, got %f", got)
	}

	observer := pc.actionDuration.WithLabelValues("stake")
	metric := &dto.Metric{}
	if err := observer.(prometheus.Metric).Write(metric); err != nil {
		t.Fatalf("failed to read histogram: %v", err)
	}
	if metric.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("expected 1 sample, got %d", metric.GetHistogram().GetSampleCount())
	}
	if metric.GetHistogram().GetSampleSum() != 3 {
		t.Errorf("expected sum 3s, got %f", metric.GetHistogram().GetSampleSum())
	}

	m := c.GetMetrics()
	if m.ActionCounts["withdraw"][OutcomeFailure] != 1 {
		t.Errorf("custom collector missed failure: %v", m.ActionCounts)
	}
	if m.InFlight != 0 {
		t.Errorf("custom collector in flight = %d", m.InFlight)
	}
}

func TestSetConnected(t *testing.T) {
	pc := NewPrometheusCollector(NewCollector())

	pc.SetConnected(true)
	if got := getGaugeValue(t, pc.connected); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	pc.SetConnected(false)
	if got := getGaugeValue(t, pc.connected); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	pc := NewPrometheusCollector(NewCollector())
	pc.ActionStarted("mint")
	pc.ActionFinished("mint", nil, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	pc.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`vestake_actions_total{action="mint",outcome="success"} 1`,
		"vestake_action_duration_seconds_bucket",
		"vestake_wallet_connected",
		"vestake_uptime_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestJSONHandler(t *testing.T) {
	pc := NewPrometheusCollector(NewCollector())
	pc.ActionFinished("toggle_auto_renew", nil, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/metrics.json", nil)
	rr := httptest.NewRecorder()
	pc.Handler().ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"toggle_auto_renew"`) {
		t.Errorf("action missing from JSON: %s", rr.Body.String())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	pc := NewPrometheusCollector(NewCollector())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- pc.serve(ctx, ln)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "vestake_uptime_seconds") {
		t.Error("expected metrics body")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServeInvalidAddress(t *testing.T) {
	pc := NewPrometheusCollector(NewCollector())
	if err := pc.Serve(context.Background(), "not-an-address"); err == nil {
		t.Fatal("expected listen error")
	}
}

// getCounterValue extracts the current counter value for the given labels.
func getCounterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter := cv.WithLabelValues(labels...)
	metric := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(metric); err != nil {
		t.Fatalf("failed to read counter metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

// getGaugeValue extracts the current value from a Prometheus Gauge.
func getGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("failed to read gauge metric: %v", err)
	}
	return metric.GetGauge().GetValue()
}
