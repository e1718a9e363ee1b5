// Package metrics provides Prometheus metrics for the browser session
// pool: occupancy by slot state, session lifecycle counters, probe
// verdicts and latency histograms.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	poolInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "browser_pool_info",
			Help: "Information about the pool (value always 1)",
		},
		[]string{"version", "browser_path"},
	)

	poolCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "browser_pool_capacity",
			Help: "Maximum number of concurrent sessions",
		},
	)

	poolOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "browser_pool_occupancy",
			Help: "Current slots by state",
		},
		[]string{"state"},
	)

	sessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_pool_sessions_created_total",
			Help: "Total sessions launched",
		},
	)

	sessionsReusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_pool_sessions_reused_total",
			Help: "Total acquisitions satisfied by an existing healthy session",
		},
	)

	sessionsRebuiltTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_pool_sessions_rebuilt_total",
			Help: "Total sessions replaced after a failed validation",
		},
	)

	slotsEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_pool_slots_evicted_total",
			Help: "Total slot evictions by reason",
		},
		[]string{"reason"},
	)

	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_pool_probes_total",
			Help: "Total liveness probes by verdict",
		},
		[]string{"verdict"},
	)

	tasksStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_pool_tasks_started_total",
			Help: "Total executors bound",
		},
	)

	acquireSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browser_pool_acquire_seconds",
			Help:    "Slot acquisition latency (lookup, validation, repair)",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms..~16s
		},
	)

	taskSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browser_pool_task_seconds",
			Help:    "Task runtime from executor bind to release",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms..~160s
		},
	)
)

// Collector manages the pool's Prometheus metrics.
type Collector struct{}

// CollectorConfig holds the static labels published on the info gauge.
type CollectorConfig struct {
	Version     string
	BrowserPath string
	Capacity    int
}

// NewCollector creates a collector registered on the default registerer.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	registry.MustRegister(
		poolInfo,
		poolCapacity,
		poolOccupancy,
		sessionsCreatedTotal,
		sessionsReusedTotal,
		sessionsRebuiltTotal,
		slotsEvictedTotal,
		probesTotal,
		tasksStartedTotal,
		acquireSeconds,
		taskSeconds,
	)

	poolInfo.WithLabelValues(cfg.Version, cfg.BrowserPath).Set(1)
	poolCapacity.Set(float64(cfg.Capacity))

	return &Collector{}
}

// SessionCreated records one session launch.
func (c *Collector) SessionCreated() {
	sessionsCreatedTotal.Inc()
}

// SessionReused records one acquisition served by an existing session.
func (c *Collector) SessionReused() {
	sessionsReusedTotal.Inc()
}

// SessionRebuilt records one session replacement.
func (c *Collector) SessionRebuilt() {
	sessionsRebuiltTotal.Inc()
}

// SlotEvicted records one eviction with its reason
// (idle, capacity, failed, manual, drain).
func (c *Collector) SlotEvicted(reason string) {
	slotsEvictedTotal.WithLabelValues(reason).Inc()
}

// ProbeResult records one liveness probe verdict ("alive" or "dead").
func (c *Collector) ProbeResult(verdict string) {
	probesTotal.WithLabelValues(verdict).Inc()
}

// TaskStarted records one executor bind.
func (c *Collector) TaskStarted() {
	tasksStartedTotal.Inc()
}

// ObserveAcquire records one acquisition latency sample.
func (c *Collector) ObserveAcquire(d time.Duration) {
	acquireSeconds.Observe(d.Seconds())
}

// ObserveTask records one task runtime sample.
func (c *Collector) ObserveTask(d time.Duration) {
	taskSeconds.Observe(d.Seconds())
}

// SetOccupancy publishes the per-state slot counts. States absent from
// the map are reset to zero so stale gauges never linger.
func (c *Collector) SetOccupancy(byState map[string]int) {
	for _, state := range []string{"fresh", "active", "idle", "repairing", "dead"} {
		poolOccupancy.WithLabelValues(state).Set(float64(byState[state]))
	}
}
