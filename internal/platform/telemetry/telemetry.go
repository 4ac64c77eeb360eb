// Package telemetry exposes Prometheus metrics for the record store server:
// HTTP request metrics, record mutations, exports and database pool gauges.
// Every provider owns its registry so tests and multiple servers never
// collide on global registration.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TelemetryConfig holds the metric namespace and whether process metrics
// are collected.
type TelemetryConfig struct {
	Namespace      string
	ProcessMetrics bool
}

func (c *TelemetryConfig) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "diagreg"
	}
}

// defaultDurationBuckets are the request duration boundaries in seconds.
var defaultDurationBuckets = []float64{
	0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

// TelemetryProvider owns a registry and the collectors registered on it.
type TelemetryProvider struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge
	RecordMutations *prometheus.CounterVec
	ExportedRecords prometheus.Counter
	PoolConns       *prometheus.GaugeVec
}

// NewTelemetryProvider creates the registry and registers all collectors.
func NewTelemetryProvider(cfg TelemetryConfig) *TelemetryProvider {
	cfg.applyDefaults()

	reg := prometheus.NewRegistry()
	if cfg.ProcessMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &TelemetryProvider{
		registry: reg,
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_server_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route", "status_code"}),
		ActiveRequests: f.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "http_server_active_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		RecordMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "record_mutations_total",
			Help:      "Patient record mutations by operation.",
		}, []string{"operation"}),
		ExportedRecords: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "exported_records_total",
			Help:      "Records written to CSV exports.",
		}),
		PoolConns: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "db_pool_connections",
			Help:      "Database pool connections by state.",
		}, []string{"state"}),
	}
}

// Registry returns the registry backing the provider.
func (tp *TelemetryProvider) Registry() *prometheus.Registry {
	return tp.registry
}

// RecordMutation counts one create, update or delete.
func (tp *TelemetryProvider) RecordMutation(op string) {
	if tp != nil {
		tp.RecordMutations.WithLabelValues(op).Inc()
	}
}

// RecordExport counts the records written by one export.
func (tp *TelemetryProvider) RecordExport(n int) {
	if tp != nil {
		tp.ExportedRecords.Add(float64(n))
	}
}

// SetPoolStats publishes database pool connection counts.
func (tp *TelemetryProvider) SetPoolStats(total, idle, acquired int32) {
	if tp == nil {
		return
	}
	tp.PoolConns.WithLabelValues("total").Set(float64(total))
	tp.PoolConns.WithLabelValues("idle").Set(float64(idle))
	tp.PoolConns.WithLabelValues("acquired").Set(float64(acquired))
}

// MetricsMiddleware returns an Echo middleware that records HTTP server metrics.
func (tp *TelemetryProvider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tp.ActiveRequests.Inc()
			defer tp.ActiveRequests.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is known.
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := strconv.Itoa(c.Response().Status)
			tp.RequestDuration.WithLabelValues(c.Request().Method, route, status).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (tp *TelemetryProvider) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(tp.registry, promhttp.HandlerOpts{}))
}
