package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"siteinsight/internal/reconcile"
)

// Fetcher supplies the current event list.
type Fetcher interface {
	Fetch(ctx context.Context) ([]reconcile.RawEvent, error)
}

// Ledger remembers which sessions were already alerted on.
type Ledger interface {
	NotifiedSessions(ctx context.Context, ids []string) (map[string]bool, error)
	MarkNotified(ctx context.Context, ids []string, t time.Time) error
	LastNotified(ctx context.Context) (time.Time, error)
}

// Mailer delivers a message.
type Mailer interface {
	Send(msg Message) error
}

// Worker periodically alerts on new external sessions.
type Worker struct {
	Events   Fetcher
	Ledger   Ledger
	Mailer   Mailer
	OwnerIP  string
	Window   time.Duration
	Cooldown time.Duration
	Interval time.Duration
	Logger   *zap.Logger

	now func() time.Time
}

// RunOnce checks for new visitors and sends at most one email. It returns
// how many sessions were reported. Within the cooldown nothing is sent and
// nothing is marked, so pending visitors go out with the next alert.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	if w.now != nil {
		now = w.now()
	}

	events, err := w.Events.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch events: %w", err)
	}
	visitors := Candidates(events, now, w.Window, w.OwnerIP)
	if len(visitors) == 0 {
		return 0, nil
	}
	notified, err := w.Ledger.NotifiedSessions(ctx, SessionIDs(visitors))
	if err != nil {
		return 0, err
	}
	visitors = Unnotified(visitors, notified)
	if len(visitors) == 0 {
		return 0, nil
	}

	last, err := w.Ledger.LastNotified(ctx)
	if err != nil {
		return 0, err
	}
	if !last.IsZero() && now.Sub(last) < w.Cooldown {
		w.logger().Debug("alert cooldown active", zap.Int("pending", len(visitors)), zap.Time("last", last))
		return 0, nil
	}

	msg, err := Compose(visitors, now)
	if err != nil {
		return 0, err
	}
	if err := w.Mailer.Send(msg); err != nil {
		return 0, err
	}
	if err := w.Ledger.MarkNotified(ctx, SessionIDs(visitors), now); err != nil {
		return len(visitors), err
	}
	return len(visitors), nil
}

func (w *Worker) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// Start runs RunOnce every Interval until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	logger := w.logger()
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := w.RunOnce(ctx)
				if err != nil {
					logger.Error("visitor alert failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("visitor alert sent", zap.Int("sessions", n))
				}
			}
		}
	}()
}
