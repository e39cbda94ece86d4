package handlers

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"siteinsight/internal/reconcile"
	"siteinsight/internal/source"
)

// EventLoader supplies the cached raw event list; *source.Cached implements it.
type EventLoader interface {
	Load(ctx context.Context) source.Result
	Invalidate(ctx context.Context) error
}

// Reports serves the reconciled tables built from the event list.
type Reports struct {
	Events  EventLoader
	Options reconcile.Options
	Logger  *zap.Logger
}

// load returns the current event list, refreshing first when the request
// carries refresh=1.
func (r *Reports) load(ctx *fasthttp.RequestCtx) source.Result {
	if string(ctx.QueryArgs().Peek("refresh")) == "1" {
		if err := r.Events.Invalidate(ctx); err != nil {
			r.Logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	return r.Events.Load(ctx)
}

func (r *Reports) build(res source.Result) reconcile.Report {
	start := time.Now()
	rep := reconcile.Build(res.Events, r.Options)
	reportDuration.Observe(time.Since(start).Seconds())
	label := res.Source
	if label == "" {
		label = "none"
	}
	reportBuilds.WithLabelValues(label).Inc()
	return rep
}

// envelope carries the provenance fields every report response shares.
func envelope(res source.Result) map[string]any {
	return map[string]any{
		"source":     res.Source,
		"fetched_at": formatTimestamp(res.FetchedAt),
		"no_data":    res.NoData(),
	}
}

// Sessions lists one row per session. order=recent sorts by the latest
// known activity instead of first arrival.
func (r *Reports) Sessions() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res := r.load(ctx)
		body := envelope(res)
		if string(ctx.QueryArgs().Peek("order")) == "recent" {
			sessions := reconcile.Merge(res.Events, r.Options)
			reconcile.SortByRecent(sessions)
			rows := make([]reconcile.SessionRow, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, reconcile.NewSessionRow(s))
			}
			body["sessions"] = rows
		} else {
			body["sessions"] = r.build(res).Sessions
		}
		jsonResponse(ctx, body)
	}
}

// Clicks lists one row per click event.
func (r *Reports) Clicks() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res := r.load(ctx)
		body := envelope(res)
		body["clicks"] = r.build(res).Clicks
		jsonResponse(ctx, body)
	}
}

// Journeys lists one reconstructed page path per session.
func (r *Reports) Journeys() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res := r.load(ctx)
		body := envelope(res)
		body["journeys"] = r.build(res).Journeys
		jsonResponse(ctx, body)
	}
}

// Summary returns the headline totals and location counts.
func (r *Reports) Summary() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res := r.load(ctx)
		body := envelope(res)
		body["summary"] = r.build(res).Summary
		jsonResponse(ctx, body)
	}
}

// Files returns click and download counts per file.
func (r *Reports) Files() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res := r.load(ctx)
		body := envelope(res)
		body["files"] = r.build(res).Files
		jsonResponse(ctx, body)
	}
}

// Refresh drops the cached event list.
func (r *Reports) Refresh() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if err := r.Events.Invalidate(ctx); err != nil {
			r.Logger.Error("cache invalidation failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to invalidate cache")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "refreshed"})
	}
}
