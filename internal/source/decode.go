package source

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"siteinsight/internal/reconcile"
)

// Decode parses an event list body. Both a bare JSON array and an object
// with an "events" array are accepted; elements that are not objects are
// skipped. Numbers are kept as json.Number.
func Decode(body []byte) ([]reconcile.RawEvent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["events"].([]any)
		if !ok {
			return nil, ErrNotEventList
		}
		items = list
	default:
		return nil, ErrNotEventList
	}

	out := make([]reconcile.RawEvent, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, reconcile.RawEvent(m))
		}
	}
	return out, nil
}

// Encode renders events as a JSON array.
func Encode(events []reconcile.RawEvent) ([]byte, error) {
	if events == nil {
		events = []reconcile.RawEvent{}
	}
	return json.Marshal(events)
}
