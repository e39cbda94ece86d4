package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bucketCounts groups one hour of events by type.
func bucketCounts(events []Event) map[string]TrafficBucket {
	sessions := make(map[string]map[string]bool)
	out := make(map[string]TrafficBucket)
	for _, e := range events {
		b := out[e.Type]
		b.Type = e.Type
		b.Events++
		if sessions[e.Type] == nil {
			sessions[e.Type] = make(map[string]bool)
		}
		if !sessions[e.Type][e.SessionID] {
			sessions[e.Type][e.SessionID] = true
			b.Sessions++
		}
		out[e.Type] = b
	}
	return out
}

// runAggregationOnce aggregates events received in the given hour
// (bucketStart to bucketStart+1h) into TrafficBucket rows. Call with
// bucketStart = time in UTC truncated to hour.
func runAggregationOnce(db *gorm.DB, bucketStart time.Time) error {
	bucketEnd := bucketStart.Add(time.Hour)

	var events []Event
	if err := db.Where("created_at >= ? AND created_at < ?", bucketStart, bucketEnd).
		Select("type", "session_id").
		Find(&events).Error; err != nil {
		return err
	}

	for _, row := range bucketCounts(events) {
		row.BucketStart = bucketStart
		var existing TrafficBucket
		err := db.Where("type = ? AND bucket_start = ?", row.Type, bucketStart).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			err = db.Create(&row).Error
		} else if err == nil {
			err = db.Model(&existing).Updates(map[string]interface{}{
				"events":   row.Events,
				"sessions": row.Sessions,
			}).Error
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// StartAggregationWorker runs aggregation for the last 24 completed hours
// at startup, then every hour. Buckets are in UTC.
func StartAggregationWorker(db *gorm.DB, logger *zap.Logger) {
	go func() {
		now := time.Now().UTC()
		for i := 1; i <= 24; i++ {
			bucketStart := now.Truncate(time.Hour).Add(-time.Duration(i) * time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				logger.Error("aggregation failed (startup)", zap.Time("bucket", bucketStart), zap.Error(err))
			}
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			bucketStart := t.UTC().Truncate(time.Hour).Add(-time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				logger.Error("aggregation failed", zap.Time("bucket", bucketStart), zap.Error(err))
			}
		}
	}()
}

// TrafficSeries returns hourly buckets since the given time, oldest first,
// optionally limited to one event type.
func (s *Store) TrafficSeries(ctx context.Context, since time.Time, eventType string) ([]TrafficBucket, error) {
	q := s.DB.WithContext(ctx).Where("bucket_start >= ?", since)
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	var rows []TrafficBucket
	if err := q.Order("bucket_start, type").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("traffic series: %w", err)
	}
	return rows, nil
}
