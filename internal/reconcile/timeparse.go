package reconcile

import (
	"strings"
	"time"
)

// Layouts accepted for string timestamps, tried in order. Layouts without a
// zone are read as UTC, which is what the tracker and the SQLite store write.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// maxEpochMilli is the last millisecond of year 9999. Larger epoch values
// are not timestamps.
const maxEpochMilli = 253402300799999

// ParseTimestamp converts an ISO-8601 string (with or without a zone) or a
// numeric epoch (seconds, or milliseconds when large enough) to a UTC time.
func ParseTimestamp(v any) (time.Time, bool) {
	ev := RawEvent{"t": v}
	if s, ok := v.(string); ok {
		return parseTimestampString(s)
	}
	f, ok := ev.Float("t")
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	// JavaScript Date.now() values are milliseconds.
	if f > 1e11 {
		if f > maxEpochMilli {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), true
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Time reads field as a timestamp.
func (e RawEvent) Time(field string) (time.Time, bool) {
	v, ok := e[field]
	if !ok || v == nil {
		return time.Time{}, false
	}
	return ParseTimestamp(v)
}

// firstTime returns the first parseable timestamp among fields.
func (e RawEvent) firstTime(fields ...string) (time.Time, bool) {
	for _, f := range fields {
		if t, ok := e.Time(f); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
