package reconcile

import (
	"testing"
	"time"
)

func findSession(t *testing.T, sessions []Session, id string) Session {
	t.Helper()
	for _, s := range sessions {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("session %q not found in %d sessions", id, len(sessions))
	return Session{}
}

func TestMergeEndOnlySession(t *testing.T) {
	events := []RawEvent{{
		"type":             "session_end",
		"session_id":       "s1",
		"session_duration": 13662,
		"click_count":      0,
		"timestamp":        "2025-08-27T10:57:57Z",
		"city":             "Beaune",
	}}
	sessions := Merge(events, Options{})
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}
	s := sessions[0]
	if s.ID != "s1" {
		t.Errorf("ID = %q, want s1", s.ID)
	}
	if s.Start != nil {
		t.Errorf("Start = %v, want nil", s.Start)
	}
	if s.Duration == nil || *s.Duration != 13662 {
		t.Errorf("Duration = %v, want 13662", s.Duration)
	}
	if !s.DurationExplicit {
		t.Error("DurationExplicit = false, want true")
	}
	if s.Clicks != 0 {
		t.Errorf("Clicks = %d, want 0", s.Clicks)
	}
	if s.City != "Beaune" {
		t.Errorf("City = %q, want Beaune", s.City)
	}
	if s.Country != Unspecified {
		t.Errorf("Country = %q, want %q", s.Country, Unspecified)
	}
	if s.Latitude != nil {
		t.Errorf("Latitude = %v, want nil", *s.Latitude)
	}
	if s.Origin != KindSessionEnd {
		t.Errorf("Origin = %q, want %q", s.Origin, KindSessionEnd)
	}
}

func TestMergeOneSessionPerID(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "a"},
		{"type": "click", "session_id": "b"},
		{"type": "session_start", "session_id": "a"},
		{"type": "custom_event", "session_id": "c"},
		{"type": "session_end", "session_id": "a"},
		{"type": "click", "session_id": "a"},
		{"type": "click"},
		{"type": "session_end", "session_id": ""},
	}
	sessions := Merge(events, Options{})
	if len(sessions) != 3 {
		t.Fatalf("len(sessions) = %d, want 3", len(sessions))
	}
	want := []string{"a", "b", "c"}
	for i, s := range sessions {
		if s.ID != want[i] {
			t.Errorf("sessions[%d].ID = %q, want %q", i, s.ID, want[i])
		}
	}
}

func TestMergeClickCount(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "derived"},
		{"type": "click", "session_id": "derived"},
		{"type": "click", "session_id": "explicit"},
		{"type": "session_end", "session_id": "explicit", "click_count": 5},
		{"type": "click", "session_id": "lost-start", "page": "/"},
	}
	sessions := Merge(events, Options{})

	if got := findSession(t, sessions, "derived"); got.Clicks != 2 || got.ClickCountExplicit {
		t.Errorf("derived clicks = %d (explicit %v), want 2", got.Clicks, got.ClickCountExplicit)
	}
	if got := findSession(t, sessions, "explicit"); got.Clicks != 5 || !got.ClickCountExplicit {
		t.Errorf("explicit clicks = %d (explicit %v), want 5", got.Clicks, got.ClickCountExplicit)
	}
	lost := findSession(t, sessions, "lost-start")
	if lost.Start != nil || lost.Clicks != 1 {
		t.Errorf("lost-start = start %v clicks %d, want nil and 1", lost.Start, lost.Clicks)
	}
}

func TestMergeClassicBeatsV6(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "s", "geo_country": "France", "geo_city": "Lyon"},
		{"type": "session_end", "session_id": "s", "country": "FR"},
	}
	s := Merge(events, Options{})[0]
	if s.Country != "FR" {
		t.Errorf("Country = %q, want FR", s.Country)
	}
	if s.City != "Lyon" {
		t.Errorf("City = %q, want Lyon", s.City)
	}
}

func TestMergeClickFieldsAreLastResort(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "s", "city": "Dijon", "country": "FR", "latitude": 47.3, "longitude": 5.04},
		{"type": "session_start", "session_id": "s", "geo_city": "Paris"},
	}
	s := Merge(events, Options{})[0]
	if s.City != "Paris" {
		t.Errorf("City = %q, want Paris", s.City)
	}
	if s.Country != "FR" {
		t.Errorf("Country = %q, want FR", s.Country)
	}
	if s.Latitude == nil || *s.Latitude != 47.3 {
		t.Errorf("Latitude = %v, want 47.3", s.Latitude)
	}
}

func TestMergeBlankNeverOverwrites(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "s", "city": "Beaune", "client_ip": "1.2.3.4"},
		{"type": "session_end", "session_id": "s", "city": "", "client_ip": nil},
		{"type": "custom_event", "session_id": "s", "city": "unknown"},
	}
	s := Merge(events, Options{})[0]
	if s.City != "Beaune" {
		t.Errorf("City = %q, want Beaune", s.City)
	}
	if s.IP != "1.2.3.4" {
		t.Errorf("IP = %q, want 1.2.3.4", s.IP)
	}
}

func TestMergeEndIPWins(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "s", "client_ip": "10.0.0.1"},
		{"type": "session_end", "session_id": "s", "user_ip": "82.1.1.1"},
	}
	s := Merge(events, Options{})[0]
	if s.IP != "82.1.1.1" {
		t.Errorf("IP = %q, want 82.1.1.1", s.IP)
	}
}

func TestMergeGPSDisabledIgnoresCoordinates(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "s", "gps_source": "none", "gps_latitude": 0, "gps_longitude": 0},
	}
	s := Merge(events, Options{})[0]
	if s.Latitude != nil || s.Longitude != nil {
		t.Errorf("coordinates = %v, %v, want nil", s.Latitude, s.Longitude)
	}
}

func TestMergeDuration(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "derived", "timestamp": "2025-01-01T10:00:00Z"},
		{"type": "session_end", "session_id": "derived", "timestamp": "2025-01-01T10:02:30Z"},

		{"type": "session_start", "session_id": "override", "timestamp": "2025-01-01T10:00:00Z"},
		{"type": "session_end", "session_id": "override", "timestamp": "2025-01-01T10:02:30Z", "duration_seconds": "42"},

		{"type": "session_start", "session_id": "open", "timestamp": "2025-01-01T10:00:00Z"},

		{"type": "session_start", "session_id": "garbled", "timestamp": "not a time"},
		{"type": "session_end", "session_id": "garbled", "timestamp": "2025-01-01T10:02:30Z", "city": "Nice"},

		{"type": "session_start", "session_id": "backwards", "timestamp": "2025-01-01T11:00:00Z"},
		{"type": "session_end", "session_id": "backwards", "timestamp": "2025-01-01T10:00:00Z"},
	}
	sessions := Merge(events, Options{})

	tests := []struct {
		id   string
		want *float64
	}{
		{"derived", ptr(150.0)},
		{"override", ptr(42.0)},
		{"open", nil},
		{"garbled", nil},
		{"backwards", nil},
	}
	for _, tt := range tests {
		s := findSession(t, sessions, tt.id)
		switch {
		case tt.want == nil && s.Duration != nil:
			t.Errorf("%s duration = %v, want unknown", tt.id, *s.Duration)
		case tt.want != nil && (s.Duration == nil || *s.Duration != *tt.want):
			t.Errorf("%s duration = %v, want %v", tt.id, s.Duration, *tt.want)
		}
	}
	if g := findSession(t, sessions, "garbled"); g.City != "Nice" || g.Start != nil {
		t.Errorf("garbled = city %q start %v, want Nice and nil", g.City, g.Start)
	}
}

func TestMergeKeepsEarliestStartAndLatestEnd(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "s", "timestamp": "2025-01-01T10:05:00Z"},
		{"type": "session_start", "session_id": "s", "start_time": "2025-01-01T10:00:00Z"},
		{"type": "session_end", "session_id": "s", "end_time": "2025-01-01T10:20:00Z"},
		{"type": "session_end", "session_id": "s", "timestamp": "2025-01-01T10:10:00Z"},
	}
	s := Merge(events, Options{})[0]
	if want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC); s.Start == nil || !s.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", s.Start, want)
	}
	if want := time.Date(2025, 1, 1, 10, 20, 0, 0, time.UTC); s.End == nil || !s.End.Equal(want) {
		t.Errorf("End = %v, want %v", s.End, want)
	}
	if s.Duration == nil || *s.Duration != 1200 {
		t.Errorf("Duration = %v, want 1200", s.Duration)
	}
}

func TestMergeIgnoresOutOfRangeNumbers(t *testing.T) {
	events := []RawEvent{
		{"type": "session_end", "session_id": "s", "timestamp": 1e300, "click_count": 1e300},
	}
	s := Merge(events, Options{})[0]
	if s.End != nil {
		t.Errorf("End = %v, want nil", s.End)
	}
	if s.ClickCountExplicit {
		t.Errorf("Clicks = %d explicit, want no explicit count", s.Clicks)
	}
	clicks := ExtractClicks([]RawEvent{
		{"type": "click", "session_id": "s", "page": "/", "sequence_order": -1e300},
	})
	if c := clicks[0]; c.SequenceExplicit || c.Sequence != 1 {
		t.Errorf("sequence = %d explicit %v, want derived 1", c.Sequence, c.SequenceExplicit)
	}
}

func TestMergeOriginIsEarliestEvent(t *testing.T) {
	events := []RawEvent{
		{"type": "session_end", "session_id": "a", "timestamp": "2025-01-01T10:05:00Z"},
		{"type": "click", "session_id": "a", "page": "/"},
		{"type": "session_start", "session_id": "b", "timestamp": "2025-01-01T10:00:00Z"},
		{"type": "click", "session_id": "c", "page": "/"},
		{"type": "session_start", "session_id": "c", "timestamp": "2025-01-01T09:00:00Z"},
	}
	sessions := Merge(events, Options{})
	for id, want := range map[string]Kind{"a": KindSessionEnd, "b": KindSessionStart, "c": KindClick} {
		if got := findSession(t, sessions, id).Origin; got != want {
			t.Errorf("session %s Origin = %q, want %q", id, got, want)
		}
	}
}

func TestMergeDownloads(t *testing.T) {
	events := []RawEvent{
		{"type": "file_download", "session_id": "s", "file_name": "cv.pdf"},
		{"type": "file_download", "session_id": "s", "file_name": "photo.jpg"},
	}
	s := Merge(events, Options{})[0]
	if s.Downloads != 2 {
		t.Errorf("Downloads = %d, want 2", s.Downloads)
	}
	if s.Origin != KindFileDownload {
		t.Errorf("Origin = %q, want %q", s.Origin, KindFileDownload)
	}
}

func TestMergeAnnotations(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "me", "client_ip": "5.5.5.5", "city": "Dijon"},
		{"type": "session_start", "session_id": "them", "city": "Geneva Canton", "country": "FR"},
		{"type": "session_start", "session_id": "other", "city": "Berlin", "country": "DE"},
	}
	opts := Options{
		OwnerIP:     "5.5.5.5",
		CityCountry: map[string]string{"geneva": "CH", "gen": "XX"},
	}
	sessions := Merge(events, opts)
	if got := findSession(t, sessions, "me").City; got != "Owner" {
		t.Errorf("owner city = %q, want Owner", got)
	}
	if got := findSession(t, sessions, "them").Country; got != "CH" {
		t.Errorf("Geneva country = %q, want CH", got)
	}
	if got := findSession(t, sessions, "other").Country; got != "DE" {
		t.Errorf("Berlin country = %q, want DE", got)
	}
}

func TestSortByRecent(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	sessions := []Session{
		{ID: "none"},
		{ID: "old", Start: &t1},
		{ID: "end-only", End: &t2},
	}
	SortByRecent(sessions)
	want := []string{"end-only", "old", "none"}
	for i, s := range sessions {
		if s.ID != want[i] {
			t.Errorf("sessions[%d] = %q, want %q", i, s.ID, want[i])
		}
	}
}

func ptr[T any](v T) *T { return &v }
