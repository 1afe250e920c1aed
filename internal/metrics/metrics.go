package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewDeliveryTransitionsTotal returns a Prometheus counter vector of delivery status transitions by target status
func NewDeliveryTransitionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_transitions_total",
		Help: "Total number of delivery status transitions by target status",
	}, []string{"status"})
}

// NewConflictsReportedTotal returns a Prometheus counter for the number of reported delivery conflicts
func NewConflictsReportedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conflicts_reported_total",
		Help: "Total number of reported delivery conflicts",
	})
}

// NewWSConnectionsActive returns a Prometheus gauge for the number of open websocket connections
func NewWSConnectionsActive() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Number of currently open websocket connections",
	})
}
