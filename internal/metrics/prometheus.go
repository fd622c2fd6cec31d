package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vestake/vestake/internal/logging"
)

const namespace = "vestake"

// PrometheusCollector wraps the Collector and mirrors its metrics into
// Prometheus format. Both the JSON output and the Prometheus exposition
// format are served.
type PrometheusCollector struct {
	collector *Collector
	registry  *prometheus.Registry

	actionCount    *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	inFlight       prometheus.Gauge
	connected      prometheus.Gauge
	uptimeSeconds  prometheus.Gauge
}

// NewPrometheusCollector creates a PrometheusCollector that wraps c. Metrics
// are registered in a dedicated registry, not the global default.
func NewPrometheusCollector(c *Collector) *PrometheusCollector {
	reg := prometheus.NewRegistry()

	actionCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Staking actions by action and outcome.",
	}, []string{"action", "outcome"})

	actionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "action_duration_seconds",
		Help:      "Time from submission to mined receipt by action.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"action"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "actions_in_flight",
		Help:      "Number of actions awaiting confirmation.",
	})

	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wallet_connected",
		Help:      "1 while a wallet session is connected.",
	})

	uptimeSec := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since the process started in seconds.",
	})

	reg.MustRegister(actionCount)
	reg.MustRegister(actionDuration)
	reg.MustRegister(inFlight)
	reg.MustRegister(connected)
	reg.MustRegister(uptimeSec)
	reg.MustRegister(collectors.NewGoCollector())

	return &PrometheusCollector{
		collector:      c,
		registry:       reg,
		actionCount:    actionCount,
		actionDuration: actionDuration,
		inFlight:       inFlight,
		connected:      connected,
		uptimeSeconds:  uptimeSec,
	}
}

// Registry returns the Prometheus registry used by this collector.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Collector returns the underlying custom Collector.
func (p *PrometheusCollector) Collector() *Collector {
	return p.collector
}

// ActionStarted marks an action in flight
func (p *PrometheusCollector) ActionStarted(action string) {
	p.collector.IncrementInFlight()
	p.inFlight.Inc()
}

// ActionFinished records the outcome and latency of an action
func (p *PrometheusCollector) ActionFinished(action string, err error, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	p.collector.DecrementInFlight()
	p.collector.RecordAction(action, outcome)
	p.collector.RecordLatency(action, elapsed)

	p.inFlight.Dec()
	p.actionCount.WithLabelValues(action, outcome).Inc()
	p.actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// SetConnected records the wallet connection state in both collectors.
func (p *PrometheusCollector) SetConnected(connected bool) {
	p.collector.SetConnected(connected)
	if connected {
		p.connected.Set(1)
	} else {
		p.connected.Set(0)
	}
}

// Sync refreshes gauges derived from the underlying Collector.
func (p *PrometheusCollector) Sync() {
	m := p.collector.GetMetrics()
	p.uptimeSeconds.Set(m.UptimeSeconds)
}

// GetMetrics returns the JSON metrics from the underlying Collector.
func (p *PrometheusCollector) GetMetrics() *Metrics {
	return p.collector.GetMetrics()
}

// PrometheusHandler serves metrics in the Prometheus text exposition
// format, syncing gauges before each scrape.
func (p *PrometheusCollector) PrometheusHandler() http.Handler {
	inner := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.Sync()
		inner.ServeHTTP(w, r)
	})
}

// JSONHandler serves the Collector snapshot as JSON.
func (p *PrometheusCollector) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := p.collector.GetMetricsJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})
}

// Handler routes /metrics and /metrics.json
func (p *PrometheusCollector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.PrometheusHandler())
	mux.Handle("/metrics.json", p.JSONHandler())
	return mux
}

// Serve listens on addr and serves Handler until ctx is cancelled.
func (p *PrometheusCollector) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return p.serve(ctx, ln)
}

func (p *PrometheusCollector) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	logging.Info("metrics server listening", logging.Component("metrics"), "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errc
	return nil
}
