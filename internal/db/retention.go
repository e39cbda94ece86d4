package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runRetentionOnce performs a single pass of retention cleanup,
// deleting any events whose ExpiresAt is in the past, and forgets
// alert records older than the longest alert window.
func runRetentionOnce(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&Event{})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := db.Where("notified_at < ?", now.Add(-7*24*time.Hour)).Delete(&NotifiedSession{}).Error; err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day.
func StartRetentionWorker(db *gorm.DB, logger *zap.Logger) {
	go func() {
		if n, err := runRetentionOnce(db, time.Now()); err != nil {
			logger.Error("retention cleanup failed (startup)", zap.Error(err))
		} else {
			logger.Info("retention cleanup", zap.Int64("deleted", n))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for t := range ticker.C {
			if n, err := runRetentionOnce(db, t); err != nil {
				logger.Error("retention cleanup failed", zap.Error(err))
			} else {
				logger.Info("retention cleanup", zap.Int64("deleted", n))
			}
		}
	}()
}
