package reconcile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the value of the "type" discriminator carried by every tracker event.
type Kind string

const (
	KindSessionStart Kind = "session_start"
	KindClick        Kind = "click"
	KindSessionEnd   Kind = "session_end"
	KindCustom       Kind = "custom_event"
	KindFileDownload Kind = "file_download"
	KindUnknown      Kind = ""
)

// SupportedKinds lists the event types the tracker endpoint accepts.
var SupportedKinds = []Kind{KindSessionStart, KindClick, KindSessionEnd, KindCustom, KindFileDownload}

// ParseKind maps a raw discriminator to a Kind. Anything unrecognised is KindUnknown.
func ParseKind(s string) Kind {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindSessionStart, KindClick, KindSessionEnd, KindCustom, KindFileDownload:
		return k
	}
	return KindUnknown
}

// RawEvent is one ingested record as a sparse field map. Values are whatever the
// JSON decoder produced: string, float64, json.Number, bool, nil, or nested values.
type RawEvent map[string]any

// Kind returns the event discriminator.
func (e RawEvent) Kind() Kind {
	s, _ := e.String("type")
	return ParseKind(s)
}

// SessionID returns the correlation id, or "" when absent.
func (e RawEvent) SessionID() string {
	s, _ := e.String("session_id")
	return s
}

// String returns a non-blank textual value for field. Numbers are formatted
// without exponent; blanks, nulls and sentinel strings report false.
func (e RawEvent) String(field string) (string, bool) {
	v, ok := e[field]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	if isBlank(s) {
		return "", false
	}
	return s, true
}

// Float returns a finite numeric value for field, accepting numeric strings.
func (e RawEvent) Float(field string) (float64, bool) {
	v, ok := e[field]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int returns field as an integer, truncating fractional numbers. Values
// outside the int64 range are rejected.
func (e RawEvent) Int(field string) (int64, bool) {
	f, ok := e.Float(field)
	if !ok || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// blankMarkers are placeholder strings older trackers and dashboards wrote
// instead of leaving a field out.
var blankMarkers = []string{"null", "none", "undefined", "unknown", Unspecified, "non spécifié", "n/a"}

func isBlank(s string) bool {
	if s == "" {
		return true
	}
	for _, m := range blankMarkers {
		if strings.EqualFold(s, m) {
			return true
		}
	}
	return false
}
