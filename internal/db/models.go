package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one tracker event as received by the ingestion endpoint. The
// correlating fields get their own columns; everything else the tracker
// sent stays in Attributes, since field names drift between tracker versions.
type Event struct {
	ID uint `gorm:"primaryKey"`

	// CreatedAt is when the event was received.
	CreatedAt time.Time `gorm:"index"`

	// ExpiresAt is the timestamp after which this event is eligible
	// for deletion by the retention worker. A nil value means the
	// event does not currently expire.
	ExpiresAt *time.Time `gorm:"index"`

	EventID   string `gorm:"uniqueIndex;size:36;not null"`
	Type      string `gorm:"index;size:32;not null"`
	SessionID string `gorm:"index;size:128;not null"`

	// Timestamp is the client-side time, when it could be parsed.
	Timestamp *time.Time `gorm:"index"`

	ClientIP string `gorm:"size:64"`

	// Attributes holds the full event body as sent, plus the fields added
	// on receipt (event_id, received_at, client_ip).
	Attributes datatypes.JSONMap `gorm:"type:json"`
}

// TrafficBucket stores pre-aggregated hourly counts per event type. Filled
// by the aggregation worker.
type TrafficBucket struct {
	ID uint `gorm:"primaryKey"`

	Type        string    `gorm:"uniqueIndex:idx_traffic_bucket_unique,priority:1;size:32;not null"`
	BucketStart time.Time `gorm:"uniqueIndex:idx_traffic_bucket_unique,priority:2;not null"` // start of the hour (UTC)

	Events   int64 `gorm:"not null"` // events of this type in the hour
	Sessions int64 `gorm:"not null"` // distinct session ids among them
}

// NotifiedSession records a session that was already included in a
// new-visitor alert.
type NotifiedSession struct {
	SessionID  string    `gorm:"primaryKey;size:128"`
	NotifiedAt time.Time `gorm:"index;not null"`
}
