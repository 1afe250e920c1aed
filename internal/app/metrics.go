package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-dispatch-go/internal/metrics"
)

// metricsOut exposes the process-wide collectors. The two plain counters
// carry dig names because they share a Go type.
type metricsOut struct {
	dig.Out

	RateLimitExceeded   prometheus.Counter `name:"rate_limit_exceeded_total"`
	ConflictsReported   prometheus.Counter `name:"conflicts_reported_total"`
	DeliveryTransitions *prometheus.CounterVec
	WSConnectionsActive prometheus.Gauge
}

// provideMetrics registers the collectors on the default registerer. A
// collector that is already registered (tests build several containers in
// one process) is reused instead of failing.
func provideMetrics() (metricsOut, error) {
	rateLimit, err := registerCollector("rate_limit_exceeded_total", metrics.NewRateLimitExceededTotal())
	if err != nil {
		return metricsOut{}, err
	}
	conflicts, err := registerCollector("conflicts_reported_total", metrics.NewConflictsReportedTotal())
	if err != nil {
		return metricsOut{}, err
	}
	transitions, err := registerCollector("delivery_transitions_total", metrics.NewDeliveryTransitionsTotal())
	if err != nil {
		return metricsOut{}, err
	}
	wsActive, err := registerCollector("ws_connections_active", metrics.NewWSConnectionsActive())
	if err != nil {
		return metricsOut{}, err
	}

	return metricsOut{
		RateLimitExceeded:   rateLimit,
		ConflictsReported:   conflicts,
		DeliveryTransitions: transitions,
		WSConnectionsActive: wsActive,
	}, nil
}

func registerCollector[C prometheus.Collector](name string, c C) (C, error) {
	err := prometheus.DefaultRegisterer.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	var zero C
	return zero, fmt.Errorf("register %s: %w", name, err)
}
