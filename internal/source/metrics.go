package source

import (
	"github.com/prometheus/client_golang/prometheus"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteinsight",
			Name:      "source_fetch_total",
			Help:      "Event list fetch attempts by source and result.",
		},
		[]string{"source", "result"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "siteinsight",
			Name:      "source_fetch_duration_seconds",
			Help:      "Histogram of event list fetch durations in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "siteinsight",
			Name:      "source_circuit_breaker_state",
			Help:      "Circuit breaker state per source (0=closed, 1=half-open, 2=open).",
		},
		[]string{"source"},
	)
	cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteinsight",
			Name:      "source_cache_total",
			Help:      "Event list cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{fetchTotal, fetchDuration, breakerState, cacheTotal}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
