package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "siteinsight/internal/db"
)

// parseDays reads "days" (int, 1..365) from query, defaulting to def.
func parseDays(ctx *fasthttp.RequestCtx, def int) int {
	if d := string(ctx.QueryArgs().Peek("days")); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			if n > 365 {
				n = 365
			}
			return n
		}
	}
	return def
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			logger.Info("request",
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", ctx.Response.StatusCode()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", ctx.RemoteIP().String()),
			)
		}
	}
}

// TrafficReader serves aggregated hourly buckets; *db.Store implements it.
type TrafficReader interface {
	TrafficSeries(ctx context.Context, since time.Time, eventType string) ([]dbpkg.TrafficBucket, error)
}

type trafficPoint struct {
	Bucket   string `json:"bucket"`
	Type     string `json:"type"`
	Events   int64  `json:"events"`
	Sessions int64  `json:"sessions"`
}

// TrafficSeries returns hourly event counts for the last N days
// (?days=N, default 1), optionally for one ?type=.
func TrafficSeries(traffic TrafficReader, logger *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if traffic == nil {
			errResponse(ctx, fasthttp.StatusServiceUnavailable, "event storage is not configured")
			return
		}
		days := parseDays(ctx, 1)
		since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Truncate(time.Hour)
		eventType := string(ctx.QueryArgs().Peek("type"))

		rows, err := traffic.TrafficSeries(ctx, since, eventType)
		if err != nil {
			logger.Error("traffic query failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query metrics")
			return
		}
		series := make([]trafficPoint, 0, len(rows))
		for _, r := range rows {
			series = append(series, trafficPoint{
				Bucket:   formatBucket(r.BucketStart),
				Type:     r.Type,
				Events:   r.Events,
				Sessions: r.Sessions,
			})
		}
		jsonResponse(ctx, map[string]any{"days": days, "series": series})
	}
}
