package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the pipeline subsystem.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	StageDuration   *prometheus.HistogramVec
	DeliveriesTotal *prometheus.CounterVec
	AuditFailures   prometheus.Counter
	SubmitsTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_pipeline_runs_total",
			Help: "Total pipeline runs by classification and final status.",
		}, []string{"classification", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_pipeline_run_duration_seconds",
			Help:    "Duration of full pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"classification"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}, []string{"stage"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_alert_deliveries_total",
			Help: "Total alert delivery attempts by channel and outcome.",
		}, []string{"channel", "status"}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_audit_append_failures_total",
			Help: "Total audit trail append failures.",
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_submits_total",
			Help: "Total incident submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.DeliveriesTotal,
		m.AuditFailures,
		m.SubmitsTotal,
	)

	return m
}
