package handlers

import (
	"bytes"
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	httpctx "siteinsight/internal/http/ctx"
	"siteinsight/internal/http/middleware"
	"siteinsight/internal/reconcile"
	"siteinsight/internal/source"
)

// Version is reported by the health endpoint.
var Version = "dev"

var (
	eventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteinsight",
			Name:      "events_ingested_total",
			Help:      "Tracker events accepted, by type.",
		},
		[]string{"type"},
	)
	eventsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteinsight",
			Name:      "events_rejected_total",
			Help:      "Tracker events rejected, by reason.",
		},
		[]string{"reason"},
	)
	reportBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "siteinsight",
			Name:      "report_builds_total",
			Help:      "Reports built, by event source.",
		},
		[]string{"source"},
	)
	reportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "siteinsight",
			Name:      "report_build_duration_seconds",
			Help:      "Histogram of reconciliation durations in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
)

// InitPrometheusMetrics registers every application collector with the
// default registry. Call once at startup.
func InitPrometheusMetrics() {
	prometheus.MustRegister(eventsIngested, eventsRejected, reportBuilds, reportDuration)
	prometheus.MustRegister(source.Collectors()...)
	prometheus.MustRegister(middleware.Collectors()...)
}

// EventSink persists validated tracker events.
type EventSink interface {
	SaveEvent(ctx context.Context, ev reconcile.RawEvent) error
}

// Track accepts one tracker event. A nil sink means no store is configured
// and every event is refused with 503.
func Track(sink EventSink, logger *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if sink == nil {
			eventsRejected.WithLabelValues("no_store").Inc()
			jsonError(ctx, fasthttp.StatusServiceUnavailable, "event storage is not configured")
			return
		}

		var ev reconcile.RawEvent
		dec := json.NewDecoder(bytes.NewReader(ctx.PostBody()))
		dec.UseNumber()
		if err := dec.Decode(&ev); err != nil || ev == nil {
			eventsRejected.WithLabelValues("invalid_json").Inc()
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		rawType, hasType := ev.String("type")
		if !hasType || ev.SessionID() == "" {
			eventsRejected.WithLabelValues("missing_field").Inc()
			jsonError(ctx, fasthttp.StatusBadRequest, "missing required field: type and session_id are required")
			return
		}
		kind := reconcile.ParseKind(rawType)
		if kind == reconcile.KindUnknown {
			eventsRejected.WithLabelValues("unsupported_type").Inc()
			jsonError(ctx, fasthttp.StatusBadRequest, "unsupported event type: "+rawType)
			return
		}

		eventID := uuid.NewString()
		ev["event_id"] = eventID
		ev["received_at"] = time.Now().UTC().Format(time.RFC3339Nano)
		if _, ok := ev.String("client_ip"); !ok {
			ip, ok := httpctx.ClientIPFromCtx(ctx)
			if !ok {
				ip = middleware.ResolveClientIP(ctx)
			}
			ev["client_ip"] = ip
		}

		if err := sink.SaveEvent(ctx, ev); err != nil {
			logger.Error("failed to persist event", zap.String("event_id", eventID), zap.Error(err))
			eventsRejected.WithLabelValues("store_error").Inc()
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to persist event")
			return
		}

		eventsIngested.WithLabelValues(string(kind)).Inc()
		jsonResponse(ctx, map[string]any{"status": "success", "event_id": eventID})
	}
}

// Health reports liveness.
func Health() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, map[string]any{
			"status":    "healthy",
			"timestamp": formatTimestamp(time.Now()),
			"version":   Version,
		})
	}
}
