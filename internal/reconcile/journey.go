package reconcile

import (
	"sort"
	"strings"
	"time"
)

// ClickEvent is one click-typed event normalised for ordering and display.
type ClickEvent struct {
	SessionID string
	Page      string
	Ref       FileRef
	Timestamp *time.Time
	// RawTimestamp is kept when the timestamp could not be parsed.
	RawTimestamp string

	// Sequence is the explicit sequence_order when the tracker sent one,
	// otherwise the click's 1-based position in its session's ordering.
	Sequence         int64
	SequenceExplicit bool

	// X and Y are the page coordinates of the click, when captured.
	X *float64
	Y *float64

	Pos int
}

// File returns the clicked file name, or nil when the page is not a file.
func (c ClickEvent) File() *string {
	if !c.Ref.IsFile() {
		return nil
	}
	name := c.Ref.Name
	return &name
}

// Journey is the derived page path of one session.
type Journey struct {
	SessionID string
	Pages     []string
	Files     []string
	Clicks    int
}

// Path joins the visited pages with arrows, or returns NoJourney.
func (j Journey) Path() string {
	if len(j.Pages) == 0 {
		return NoJourney
	}
	return strings.Join(j.Pages, " → ")
}

var pageFields = []string{"page", "page_path", "path"}

// ExtractClicks normalises every correlatable click event and orders each
// session's clicks. Output is grouped by session in order of each session's
// first click.
func ExtractClicks(events []RawEvent) []ClickEvent {
	b := Classify(events)
	bySession := make(map[string][]ClickEvent)
	var order []string
	for _, item := range b.Clicks {
		ev := item.Event
		id := ev.SessionID()
		if id == "" {
			continue
		}
		c := ClickEvent{SessionID: id, Pos: item.Pos}
		for _, f := range pageFields {
			if s, ok := ev.String(f); ok {
				c.Page = s
				break
			}
		}
		c.Ref = ExtractFilename(c.Page)
		if t, ok := ev.Time("timestamp"); ok {
			c.Timestamp = &t
		} else {
			c.RawTimestamp, _ = ev.String("timestamp")
		}
		if n, ok := ev.Int("sequence_order"); ok {
			c.Sequence = n
			c.SequenceExplicit = true
		}
		if x, ok := ev.Float("x_coordinate"); ok {
			c.X = &x
		}
		if y, ok := ev.Float("y_coordinate"); ok {
			c.Y = &y
		}
		if _, seen := bySession[id]; !seen {
			order = append(order, id)
		}
		bySession[id] = append(bySession[id], c)
	}

	out := make([]ClickEvent, 0, len(b.Clicks))
	for _, id := range order {
		clicks := bySession[id]
		OrderClicks(clicks)
		out = append(out, clicks...)
	}
	return out
}

// OrderClicks sorts one session's clicks: explicit sequence numbers first in
// ascending order, then by timestamp, then by arrival. Clicks without an
// explicit sequence number are then numbered after the previous click, so
// they never reuse an explicit number.
func OrderClicks(clicks []ClickEvent) {
	sort.SliceStable(clicks, func(i, j int) bool {
		a, b := clicks[i], clicks[j]
		if a.SequenceExplicit != b.SequenceExplicit {
			return a.SequenceExplicit
		}
		if a.SequenceExplicit && a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		if (a.Timestamp != nil) != (b.Timestamp != nil) {
			return a.Timestamp != nil
		}
		if a.Timestamp != nil && !a.Timestamp.Equal(*b.Timestamp) {
			return a.Timestamp.Before(*b.Timestamp)
		}
		return a.Pos < b.Pos
	})
	var last int64
	for i := range clicks {
		if clicks[i].SequenceExplicit {
			if clicks[i].Sequence > last {
				last = clicks[i].Sequence
			}
			continue
		}
		last++
		clicks[i].Sequence = last
	}
}

// BuildJourneys returns one journey per session, in the order of sessions.
// clicks must already be ordered, as returned by ExtractClicks.
func BuildJourneys(sessions []Session, clicks []ClickEvent) []Journey {
	bySession := make(map[string][]ClickEvent, len(sessions))
	for _, c := range clicks {
		bySession[c.SessionID] = append(bySession[c.SessionID], c)
	}

	out := make([]Journey, 0, len(sessions))
	for _, s := range sessions {
		j := Journey{SessionID: s.ID, Pages: []string{}, Files: []string{}}
		seen := make(map[string]bool)
		for _, c := range bySession[s.ID] {
			j.Clicks++
			if c.Page == "" {
				continue
			}
			j.Pages = append(j.Pages, c.Ref.Label())
			if c.Ref.IsFile() && !seen[c.Ref.Name] {
				seen[c.Ref.Name] = true
				j.Files = append(j.Files, c.Ref.Name)
			}
		}
		out = append(out, j)
	}
	return out
}
