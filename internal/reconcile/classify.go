package reconcile

// Buckets partitions an event stream by type. Relative order inside each
// bucket matches the input order.
type Buckets struct {
	Starts []Indexed
	Clicks []Indexed
	Ends   []Indexed
	// Other holds custom events, file downloads and anything with a missing
	// or unrecognised type.
	Other []Indexed
}

// Indexed pairs an event with its position in the original stream, which is
// the tie-breaker for every ordering decision downstream.
type Indexed struct {
	Pos   int
	Event RawEvent
}

// Classify splits events into typed buckets. It never fails and does not
// modify its input.
func Classify(events []RawEvent) Buckets {
	var b Buckets
	for i, ev := range events {
		if ev == nil {
			continue
		}
		item := Indexed{Pos: i, Event: ev}
		switch ev.Kind() {
		case KindSessionStart:
			b.Starts = append(b.Starts, item)
		case KindClick:
			b.Clicks = append(b.Clicks, item)
		case KindSessionEnd:
			b.Ends = append(b.Ends, item)
		default:
			b.Other = append(b.Other, item)
		}
	}
	return b
}

// Len returns the number of classified events.
func (b Buckets) Len() int {
	return len(b.Starts) + len(b.Clicks) + len(b.Ends) + len(b.Other)
}
