package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns one service's Prometheus registry and collectors. The HTTP
// collectors exist for both services; the upstream collectors only when the
// service forwards to an upstream.
type Metrics struct {
	reg *prometheus.Registry

	httpRequestsTotal   prometheus.Counter
	httpResponsesByCode *prometheus.CounterVec
	httpDuration        prometheus.Histogram

	forwardOutcomes *prometheus.CounterVec
	upstreamHealthy prometheus.Gauge
	upstreamLatency prometheus.Histogram
}

// New builds the registry for one service. Metric names are prefixed with
// the service name (dashes become underscores). withUpstream adds the
// collectors only the forwarding service feeds: forward outcomes, the
// upstream health gauge, and upstream call latency.
func New(service string, withUpstream bool) *Metrics {
	sub := strings.ReplaceAll(service, "-", "_")

	m := &Metrics{
		reg: prometheus.NewRegistry(),
	}

	m.httpRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: sub,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests received",
	})
	m.reg.MustRegister(m.httpRequestsTotal)

	m.httpResponsesByCode = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: sub,
		Name:      "http_responses_total",
		Help:      "HTTP responses by status code",
	}, []string{"code"})
	m.reg.MustRegister(m.httpResponsesByCode)

	m.httpDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: sub,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 3.0, 5.0},
	})
	m.reg.MustRegister(m.httpDuration)

	if withUpstream {
		m.forwardOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: sub,
			Name:      "forward_outcomes_total",
			Help:      "Forwarded requests by terminal outcome",
		}, []string{"outcome"})
		m.reg.MustRegister(m.forwardOutcomes)

		m.upstreamHealthy = prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: sub,
			Name:      "upstream_healthy",
			Help:      "1 when the last upstream health probe returned 200",
		})
		m.reg.MustRegister(m.upstreamHealthy)

		m.upstreamLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: sub,
			Name:      "upstream_call_duration_seconds",
			Help:      "Successful echo call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 3.0},
		})
		m.reg.MustRegister(m.upstreamLatency)
	}

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// HTTPMiddleware tracks request count, response codes and duration for every
// request passing through it.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.httpRequestsTotal.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			m.httpDuration.Observe(time.Since(start).Seconds())
			m.httpResponsesByCode.WithLabelValues(strconv.Itoa(rw.statusCode)).Inc()
		})
	}
}

// RecordForwardOutcome counts one terminal forward outcome.
func (m *Metrics) RecordForwardOutcome(outcome string) {
	if m.forwardOutcomes == nil {
		return
	}
	m.forwardOutcomes.WithLabelValues(outcome).Inc()
}

// SetUpstreamHealthy reflects the latest health probe result on the gauge.
func (m *Metrics) SetUpstreamHealthy(healthy bool) {
	if m.upstreamHealthy == nil {
		return
	}
	if healthy {
		m.upstreamHealthy.Set(1)
	} else {
		m.upstreamHealthy.Set(0)
	}
}

// ObserveUpstreamLatency records the duration of one successful echo call.
func (m *Metrics) ObserveUpstreamLatency(d time.Duration) {
	if m.upstreamLatency == nil {
		return
	}
	m.upstreamLatency.Observe(d.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
