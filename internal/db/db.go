package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"siteinsight/internal/config"
	"siteinsight/internal/reconcile"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Event{}, &TrafficBucket{}, &NotifiedSession{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Store persists tracker events and serves them back as raw events.
type Store struct {
	DB *gorm.DB
	// RetentionDays sets ExpiresAt on saved events; 0 keeps them forever.
	RetentionDays int
}

func NewStore(db *gorm.DB, retentionDays int) *Store {
	return &Store{DB: db, RetentionDays: retentionDays}
}

// NewEvent builds the row for a validated raw event received at now.
func NewEvent(ev reconcile.RawEvent, now time.Time, retentionDays int) Event {
	attrs := make(datatypes.JSONMap, len(ev))
	for k, v := range ev {
		attrs[k] = v
	}
	rec := Event{
		CreatedAt:  now,
		Type:       string(ev.Kind()),
		SessionID:  ev.SessionID(),
		Attributes: attrs,
	}
	rec.EventID, _ = ev.String("event_id")
	rec.ClientIP, _ = ev.String("client_ip")
	if t, ok := ev.Time("timestamp"); ok {
		rec.Timestamp = &t
	}
	if retentionDays > 0 {
		t := now.Add(time.Duration(retentionDays) * 24 * time.Hour)
		rec.ExpiresAt = &t
	}
	return rec
}

// SaveEvent persists one validated event.
func (s *Store) SaveEvent(ctx context.Context, ev reconcile.RawEvent) error {
	rec := NewEvent(ev, time.Now().UTC(), s.RetentionDays)
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save event %s: %w", rec.EventID, err)
	}
	return nil
}

// LoadEvents returns events received at or after since (all events when
// since is zero), in arrival order.
func (s *Store) LoadEvents(ctx context.Context, since time.Time) ([]reconcile.RawEvent, error) {
	q := s.DB.WithContext(ctx).Order("id")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var rows []Event
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	out := make([]reconcile.RawEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Raw())
	}
	return out, nil
}

// Raw converts a stored row back into the event the tracker sent. The
// indexed columns win over attribute copies.
func (e Event) Raw() reconcile.RawEvent {
	ev := make(reconcile.RawEvent, len(e.Attributes)+3)
	for k, v := range e.Attributes {
		ev[k] = v
	}
	ev["type"] = e.Type
	ev["session_id"] = e.SessionID
	if _, ok := ev["timestamp"]; !ok && e.Timestamp != nil {
		ev["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return ev
}

// NotifiedSessions returns the subset of ids already alerted on.
func (s *Store) NotifiedSessions(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []NotifiedSession
	if err := s.DB.WithContext(ctx).Where("session_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load notified sessions: %w", err)
	}
	for _, r := range rows {
		out[r.SessionID] = true
	}
	return out, nil
}

// MarkNotified records ids as alerted at t.
func (s *Store) MarkNotified(ctx context.Context, ids []string, t time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([]NotifiedSession, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, NotifiedSession{SessionID: id, NotifiedAt: t})
	}
	if err := s.DB.WithContext(ctx).Save(&rows).Error; err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// LastNotified returns the time of the most recent alert, or the zero time.
func (s *Store) LastNotified(ctx context.Context) (time.Time, error) {
	var row NotifiedSession
	err := s.DB.WithContext(ctx).Order("notified_at DESC").Limit(1).Find(&row).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("last notified: %w", err)
	}
	return row.NotifiedAt, nil
}
