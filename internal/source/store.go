package source

import (
	"context"
	"time"

	"siteinsight/internal/reconcile"
)

// EventLoader is implemented by the event store.
type EventLoader interface {
	LoadEvents(ctx context.Context, since time.Time) ([]reconcile.RawEvent, error)
}

// StoreSource serves events persisted by the ingestion endpoint.
type StoreSource struct {
	Loader EventLoader
	// Window limits the load to recent events; zero loads everything.
	Window time.Duration
}

func (s *StoreSource) Name() string { return "store" }

func (s *StoreSource) Fetch(ctx context.Context) ([]reconcile.RawEvent, error) {
	var since time.Time
	if s.Window > 0 {
		since = time.Now().Add(-s.Window)
	}
	return s.Loader.LoadEvents(ctx, since)
}
