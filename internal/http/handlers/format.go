package handlers

import "time"

// bucketLayout renders traffic bucket starts, always in UTC.
const bucketLayout = "2006-01-02T15:04:05Z"

// formatBucket formats an hourly bucket start for the traffic series.
func formatBucket(t time.Time) string {
	return t.UTC().Format(bucketLayout)
}

// formatTimestamp formats t for JSON responses, or "" for the zero time.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
