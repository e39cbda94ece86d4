package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"siteinsight/internal/reconcile"
)

// HTTPSource fetches the event list from a remote JSON feed. Each source has
// its own timeout and circuit breaker, so a dead primary stops costing a
// full timeout on every report.
type HTTPSource struct {
	name    string
	url     string
	timeout time.Duration
	client  *fasthttp.Client
	cb      *gobreaker.CircuitBreaker[[]reconcile.RawEvent]
	logger  *zap.Logger
}

// NewHTTPSource builds a source for url. A nil client gets a default one.
func NewHTTPSource(name, url string, timeout time.Duration, client *fasthttp.Client, logger *zap.Logger) *HTTPSource {
	if client == nil {
		client = &fasthttp.Client{
			Name:                "siteinsight",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HTTPSource{name: name, url: url, timeout: timeout, client: client, logger: logger}

	breakerState.WithLabelValues(name).Set(0)
	s.cb = gobreaker.NewCircuitBreaker[[]reconcile.RawEvent](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("source", name), zap.Stringer("from", from), zap.Stringer("to", to))
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return s
}

func (s *HTTPSource) Name() string { return s.name }

// URL returns the feed address.
func (s *HTTPSource) URL() string { return s.url }

// Fetch downloads and decodes the feed.
func (s *HTTPSource) Fetch(ctx context.Context) ([]reconcile.RawEvent, error) {
	events, err := s.cb.Execute(func() ([]reconcile.RawEvent, error) {
		body, err := s.get(ctx)
		if err != nil {
			return nil, err
		}
		return Decode(body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return events, err
}

func (s *HTTPSource) get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.url, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", s.url, code)
	}
	return append([]byte(nil), resp.Body()...), nil
}
