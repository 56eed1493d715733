package livefeed

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the live feed subsystem.
type Metrics struct {
	PushesTotal       *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
}

// NewMetrics registers and returns live feed metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_livefeed_pushes_total",
			Help: "Total stage update pushes by outcome.",
		}, []string{"outcome"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_livefeed_connections_active",
			Help: "Currently registered real-time connections.",
		}),
	}
	reg.MustRegister(m.PushesTotal, m.ConnectionsActive)
	return m
}
