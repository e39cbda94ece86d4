package reconcile

import (
	"sort"
	"strings"
	"time"
)

// Unspecified is written for text attributes no event could supply.
const Unspecified = "unspecified"

// Session is the reconciled view of one session id.
type Session struct {
	ID string

	// Start is nil when no session_start event was observed.
	Start *time.Time
	End   *time.Time

	// Duration is in seconds; nil means unknown, which is not the same as a
	// zero-length session.
	Duration         *float64
	DurationExplicit bool

	Clicks             int
	ClickCountExplicit bool
	Downloads          int

	IP        string
	Country   string
	City      string
	Latitude  *float64
	Longitude *float64

	IPSource  string
	GeoSource string

	// Origin is the type of the earliest event for this id in the stream.
	Origin Kind
	// FirstSeen is the stream position of the earliest event for this id.
	FirstSeen int
}

// LastActivity returns the best-known time for the session: start, else end.
func (s Session) LastActivity() (time.Time, bool) {
	if s.Start != nil {
		return *s.Start, true
	}
	if s.End != nil {
		return *s.End, true
	}
	return time.Time{}, false
}

// Options tunes the annotation pass that runs after fill-priority and the
// file statistics of a Report.
type Options struct {
	// OwnerIP marks the site owner's own visits; their city is replaced by
	// OwnerLabel.
	OwnerIP    string
	OwnerLabel string
	// CityCountry corrects the country of sessions whose city contains a key
	// (case-insensitive).
	CityCountry map[string]string
	// KnownFiles is the site's file catalog; catalog entries are listed in
	// file statistics even with zero clicks.
	KnownFiles []string
}

// Fill tiers, in priority order.
const (
	tierClassic = iota
	tierV6
	tierClick
	numTiers
)

type accumulator struct {
	id        string
	origin    Kind
	firstSeen int

	start *time.Time
	end   *time.Time

	explicitDuration *float64
	explicitClicks   *int64
	clicks           int
	downloads        int

	slots [numAttrs][numTiers]value
	endIP value

	ipSource  string
	geoSource string
}

// Merger folds raw events into per-session accumulators. The zero value is
// not usable; call NewMerger.
type Merger struct {
	sessions map[string]*accumulator
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{sessions: make(map[string]*accumulator)}
}

// Merge reconciles a whole batch. Session-start events are folded first,
// then clicks, then session ends, then everything else, so seeding fields
// from a session_start is never displaced by later event kinds.
func Merge(events []RawEvent, opts Options) []Session {
	b := Classify(events)
	m := NewMerger()
	for _, group := range [][]Indexed{b.Starts, b.Clicks, b.Ends, b.Other} {
		for _, item := range group {
			m.Fold(item)
		}
	}
	return m.Sessions(opts)
}

// Fold applies one event. Events without a session id cannot be correlated
// and are ignored.
func (m *Merger) Fold(item Indexed) {
	ev := item.Event
	id := ev.SessionID()
	if id == "" {
		return
	}
	kind := ev.Kind()
	acc := m.session(id, kind, item.Pos)

	switch kind {
	case KindSessionStart:
		if t, ok := ev.firstTime("start_time", "timestamp"); ok {
			if acc.start == nil || t.Before(*acc.start) {
				acc.start = &t
			}
		}
		acc.fillSessionFields(ev)
	case KindClick:
		acc.clicks++
		acc.fillClickFields(ev)
	case KindSessionEnd:
		if t, ok := ev.firstTime("end_time", "timestamp"); ok {
			if acc.end == nil || t.After(*acc.end) {
				acc.end = &t
			}
		}
		if d, ok := firstFloat(ev, "session_duration", "duration_seconds"); ok && d >= 0 {
			if acc.explicitDuration == nil || d > *acc.explicitDuration {
				acc.explicitDuration = &d
			}
		}
		if n, ok := firstInt(ev, "click_count", "total_clicks"); ok && n >= 0 {
			if acc.explicitClicks == nil || n > *acc.explicitClicks {
				acc.explicitClicks = &n
			}
		}
		if !acc.endIP.set {
			if v, ok := lookup(ev, AttrClientIP, SchemaClassic); ok {
				acc.endIP = v
			} else if v, ok := lookup(ev, AttrClientIP, SchemaV6); ok {
				acc.endIP = v
			}
		}
		acc.fillSessionFields(ev)
	case KindFileDownload:
		acc.downloads++
		acc.fillSessionFields(ev)
	default:
		acc.fillSessionFields(ev)
	}
}

func (m *Merger) session(id string, kind Kind, pos int) *accumulator {
	acc, ok := m.sessions[id]
	if !ok {
		acc = &accumulator{id: id, origin: kind, firstSeen: pos}
		m.sessions[id] = acc
		return acc
	}
	if pos < acc.firstSeen {
		acc.firstSeen = pos
		acc.origin = kind
	}
	return acc
}

// fillSessionFields records classic and v6 values from a session-level event.
func (a *accumulator) fillSessionFields(ev RawEvent) {
	for attr := Attr(0); attr < numAttrs; attr++ {
		a.fill(attr, tierClassic, ev, SchemaClassic)
		a.fill(attr, tierV6, ev, SchemaV6)
	}
	a.fillProvenance(ev)
}

// fillClickFields records click-derived values, the last-resort tier.
func (a *accumulator) fillClickFields(ev RawEvent) {
	for attr := Attr(0); attr < numAttrs; attr++ {
		a.fill(attr, tierClick, ev, SchemaClassic)
		a.fill(attr, tierClick, ev, SchemaV6)
	}
	a.fillProvenance(ev)
}

func (a *accumulator) fill(attr Attr, tier int, ev RawEvent, schema Schema) {
	if a.slots[attr][tier].set {
		return
	}
	if v, ok := lookup(ev, attr, schema); ok {
		a.slots[attr][tier] = v
	}
}

func (a *accumulator) fillProvenance(ev RawEvent) {
	if a.ipSource == "" {
		a.ipSource, _ = ev.String("ip_source")
	}
	if a.geoSource == "" {
		a.geoSource, _ = ev.String("geo_source")
	}
}

// resolve returns the highest-priority value recorded for attr.
func (a *accumulator) resolve(attr Attr) (value, bool) {
	if attr == AttrClientIP && a.endIP.set {
		return a.endIP, true
	}
	for tier := 0; tier < numTiers; tier++ {
		if v := a.slots[attr][tier]; v.set {
			return v, true
		}
	}
	return value{}, false
}

// Sessions finalizes every accumulator into a Session, ordered by first
// appearance in the stream. Calling it does not consume the Merger.
func (m *Merger) Sessions(opts Options) []Session {
	out := make([]Session, 0, len(m.sessions))
	for _, acc := range m.sessions {
		out = append(out, acc.finalize(opts))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen != out[j].FirstSeen {
			return out[i].FirstSeen < out[j].FirstSeen
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (a *accumulator) finalize(opts Options) Session {
	s := Session{
		ID:        a.id,
		Origin:    a.origin,
		FirstSeen: a.firstSeen,
		Start:     copyTime(a.start),
		End:       copyTime(a.end),
		Clicks:    a.clicks,
		Downloads: a.downloads,
		IPSource:  a.ipSource,
		GeoSource: a.geoSource,
	}

	switch {
	case a.explicitDuration != nil:
		d := *a.explicitDuration
		s.Duration = &d
		s.DurationExplicit = true
	case a.start != nil && a.end != nil && !a.end.Before(*a.start):
		d := a.end.Sub(*a.start).Seconds()
		s.Duration = &d
	}

	if a.explicitClicks != nil {
		s.Clicks = int(*a.explicitClicks)
		s.ClickCountExplicit = true
	}

	s.IP = a.text(AttrClientIP)
	s.Country = a.text(AttrCountry)
	s.City = a.text(AttrCity)
	s.Latitude = a.number(AttrLatitude)
	s.Longitude = a.number(AttrLongitude)

	annotate(&s, opts)
	return s
}

func (a *accumulator) text(attr Attr) string {
	if v, ok := a.resolve(attr); ok {
		return v.text
	}
	return Unspecified
}

func (a *accumulator) number(attr Attr) *float64 {
	if v, ok := a.resolve(attr); ok {
		n := v.num
		return &n
	}
	return nil
}

func annotate(s *Session, opts Options) {
	if opts.OwnerIP != "" && s.IP == opts.OwnerIP {
		label := opts.OwnerLabel
		if label == "" {
			label = "Owner"
		}
		s.City = label
		return
	}
	if s.City == Unspecified || len(opts.CityCountry) == 0 {
		return
	}
	city := strings.ToLower(s.City)
	keys := make([]string, 0, len(opts.CityCountry))
	for k := range opts.CityCountry {
		keys = append(keys, k)
	}
	// Longest key first.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if k != "" && strings.Contains(city, strings.ToLower(k)) {
			s.Country = opts.CityCountry[k]
			return
		}
	}
}

// SortByRecent orders sessions by LastActivity, most recent first. Sessions
// with no known time keep their relative order at the end.
func SortByRecent(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		ti, oki := sessions[i].LastActivity()
		tj, okj := sessions[j].LastActivity()
		if oki != okj {
			return oki
		}
		return oki && ti.After(tj)
	})
}

func firstFloat(ev RawEvent, fields ...string) (float64, bool) {
	for _, f := range fields {
		if v, ok := ev.Float(f); ok {
			return v, true
		}
	}
	return 0, false
}

func firstInt(ev RawEvent, fields ...string) (int64, bool) {
	for _, f := range fields {
		if v, ok := ev.Int(f); ok {
			return v, true
		}
	}
	return 0, false
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
