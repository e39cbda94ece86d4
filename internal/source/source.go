// Package source fetches the raw event list for reporting. Each Source is
// one place the list can come from; a Chain tries them in order and a
// Cached chain keeps the last result for a short time.
package source

import (
	"context"
	"errors"
	"time"

	"siteinsight/internal/reconcile"
)

var (
	// ErrNoData is recorded when every source in a chain failed.
	ErrNoData = errors.New("no event source available")
	// ErrEmptyBody is returned when a source answered with nothing at all.
	ErrEmptyBody = errors.New("empty event list body")
	// ErrNotEventList is returned for JSON that is neither an array nor an
	// object with an "events" array.
	ErrNotEventList = errors.New("body is not an event list")
)

// Source is one origin of the raw event list.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]reconcile.RawEvent, error)
}

// Result is what a chain produced: the events, which source supplied them,
// and the failures of the sources tried before it.
type Result struct {
	Events    []reconcile.RawEvent `json:"events"`
	Source    string               `json:"source"`
	FetchedAt time.Time            `json:"fetched_at"`
	Errors    []string             `json:"errors,omitempty"`
}

// NoData reports whether every source failed.
func (r Result) NoData() bool {
	return r.Source == ""
}
