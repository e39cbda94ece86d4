package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteinsight",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "siteinsight",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route"},
	)
)

// Collectors returns the middleware metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{httpRequestsTotal, httpRequestDuration}
}

// RequestMetrics records every request against its route. Paths not in
// routes are counted as "other" to keep label cardinality bounded.
func RequestMetrics(routes ...string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			duration := time.Since(start)

			route := string(ctx.Path())
			if !known[route] {
				route = "other"
			}
			status := strconv.Itoa(ctx.Response.StatusCode())
			httpRequestsTotal.WithLabelValues(route, string(ctx.Method()), status).Inc()
			httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
		}
	}
}
