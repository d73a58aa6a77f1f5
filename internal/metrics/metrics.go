// ============================================================================
// Emberlog Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose pipeline metrics for Prometheus monitoring
//
// Metric Categories:
//
//   1. Record Counters - Cumulative, monotonically increasing:
//      - records_submitted_total: Total records submitted to the main queue
//      - records_dropped_total: Total records dropped by overflow, labeled
//        by appender and reason
//      - appender_setup_failures_total: Total appender setup failures
//      - appender_restarts_total: Total successful appender restarts
//
//   2. Performance Metrics (Histogram) - Distribution stats:
//      - dispatch_latency_seconds: Dispatcher fan-out duration per record
//
//   3. Status Metrics (Gauge) - Instantaneous values:
//      - main_queue_depth: Current main queue occupancy
//      - appender_queue_depth: Current per-appender queue occupancy
//      - appender_state: Current AppenderWorker state, by appender
//
// HTTP Endpoint:
//   Exposed via /metrics, scraped by Prometheus. Format: Prometheus text.
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for the logging pipeline.
type Collector struct {
	recordsSubmitted prometheus.Counter
	recordsDropped   *prometheus.CounterVec
	setupFailures    *prometheus.CounterVec
	restarts         *prometheus.CounterVec

	dispatchLatency prometheus.Histogram

	mainQueueDepth     prometheus.Gauge
	appenderQueueDepth *prometheus.GaugeVec
	appenderState      *prometheus.GaugeVec
}

// NewCollector creates a new metrics collector and registers every
// metric with the default Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		recordsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emberlog_records_submitted_total",
			Help: "Total number of records submitted to the main queue",
		}),
		recordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emberlog_records_dropped_total",
			Help: "Total number of records dropped due to overflow",
		}, []string{"appender", "reason"}),
		setupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emberlog_appender_setup_failures_total",
			Help: "Total number of appender setup failures",
		}, []string{"appender"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emberlog_appender_restarts_total",
			Help: "Total number of successful appender restarts",
		}, []string{"appender"}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "emberlog_dispatch_latency_seconds",
			Help:    "Dispatcher fan-out duration per record, in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		mainQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "emberlog_main_queue_depth",
			Help: "Current number of records queued for dispatch",
		}),
		appenderQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emberlog_appender_queue_depth",
			Help: "Current number of records queued for one appender",
		}, []string{"appender"}),
		appenderState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emberlog_appender_state",
			Help: "Current AppenderWorker state (0=BeforeSetup 1=Running 2=WaitAfterFail 3=ToRestart 4=BeforeTearDown)",
		}, []string{"appender"}),
	}

	prometheus.MustRegister(
		c.recordsSubmitted,
		c.recordsDropped,
		c.setupFailures,
		c.restarts,
		c.dispatchLatency,
		c.mainQueueDepth,
		c.appenderQueueDepth,
		c.appenderState,
	)

	return c
}

// RecordSubmitted records one record accepted onto the main queue.
func (c *Collector) RecordSubmitted() {
	c.recordsSubmitted.Inc()
}

// RecordDropped records one record dropped for an appender, labeled by
// the overflow reason's string form.
func (c *Collector) RecordDropped(appender, reason string) {
	c.recordsDropped.WithLabelValues(appender, reason).Inc()
}

// RecordSetupFailure records one failed Setup call for an appender.
func (c *Collector) RecordSetupFailure(appender string) {
	c.setupFailures.WithLabelValues(appender).Inc()
}

// RecordRestart records one successful TryRestart call for an appender.
func (c *Collector) RecordRestart(appender string) {
	c.restarts.WithLabelValues(appender).Inc()
}

// ObserveDispatchLatency records one dispatcher fan-out duration.
func (c *Collector) ObserveDispatchLatency(seconds float64) {
	c.dispatchLatency.Observe(seconds)
}

// SetMainQueueDepth sets the current main queue occupancy gauge.
func (c *Collector) SetMainQueueDepth(depth int) {
	c.mainQueueDepth.Set(float64(depth))
}

// SetAppenderQueueDepth sets one appender's queue occupancy gauge.
func (c *Collector) SetAppenderQueueDepth(appender string, depth int) {
	c.appenderQueueDepth.WithLabelValues(appender).Set(float64(depth))
}

// SetAppenderState sets one appender's current worker state gauge.
func (c *Collector) SetAppenderState(appender string, state int) {
	c.appenderState.WithLabelValues(appender).Set(float64(state))
}

// StartServer starts the Prometheus metrics HTTP server on the given
// port, blocking until it exits.
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
