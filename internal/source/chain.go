package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"siteinsight/internal/reconcile"
)

// Chain tries its sources in order and returns the first success. An empty
// list is a success.
type Chain struct {
	Sources []Source
	// WriteThrough, when set, receives every list fetched from a remote
	// source so it can serve as the offline fallback.
	WriteThrough *FileSource
	Logger       *zap.Logger
}

// Load runs the chain. It never fails: when every source fails the result
// is empty, Source is "" and the last error is ErrNoData.
func (c *Chain) Load(ctx context.Context) Result {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result
	for _, s := range c.Sources {
		start := time.Now()
		events, err := s.Fetch(ctx)
		fetchDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			fetchTotal.WithLabelValues(s.Name(), "error").Inc()
			logger.Warn("event source failed", zap.String("source", s.Name()), zap.Error(err))
			res.Errors = append(res.Errors, s.Name()+": "+err.Error())
			continue
		}
		fetchTotal.WithLabelValues(s.Name(), "success").Inc()
		if events == nil {
			events = []reconcile.RawEvent{}
		}
		res.Events = events
		res.Source = s.Name()
		res.FetchedAt = time.Now().UTC()

		if _, remote := s.(*HTTPSource); remote && c.WriteThrough != nil {
			if err := c.WriteThrough.Save(events); err != nil {
				logger.Warn("cache file write failed", zap.String("path", c.WriteThrough.Path), zap.Error(err))
			}
		}
		return res
	}

	res.Events = []reconcile.RawEvent{}
	res.FetchedAt = time.Now().UTC()
	res.Errors = append(res.Errors, ErrNoData.Error())
	logger.Error("all event sources failed", zap.Strings("errors", res.Errors))
	return res
}

// Fetch returns the events of Load, or ErrNoData when every source failed.
func (c *Chain) Fetch(ctx context.Context) ([]reconcile.RawEvent, error) {
	res := c.Load(ctx)
	if res.NoData() {
		return res.Events, ErrNoData
	}
	return res.Events, nil
}
