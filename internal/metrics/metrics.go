// Package metrics exposes transfer and HTTP metrics to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

const namespace = "payments"

type Metrics struct {
	TransfersTotal      *prometheus.CounterVec
	TransferDuration    prometheus.Histogram
	TransferVolume      prometheus.Counter
	IdempotentReplays   prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransfersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "total",
			Help:      "Executed transfers by terminal status",
		}, []string{"status"}),
		TransferDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "duration_seconds",
			Help:      "Transfer execution time in seconds",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		TransferVolume: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "volume_minor_units_total",
			Help:      "Amount moved by completed transfers, in minor units",
		}),
		IdempotentReplays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "replays_total",
			Help:      "Requests answered from a stored outcome",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveTransfer(status models.TransferStatus, amount int64, latency time.Duration) {
	m.TransfersTotal.WithLabelValues(string(status)).Inc()
	m.TransferDuration.Observe(latency.Seconds())
	if status == models.StatusCompleted {
		m.TransferVolume.Add(float64(amount))
	}
}

func (m *Metrics) ObserveReplay() {
	m.IdempotentReplays.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, latency time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(latency.Seconds())
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
