package reconcile

import (
	"reflect"
	"testing"
)

func TestOrderClicksBySequence(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "s", "page": "second.pdf", "sequence_order": 2},
		{"type": "click", "session_id": "s", "page": "first.pdf", "sequence_order": 1},
	}
	clicks := ExtractClicks(events)
	if len(clicks) != 2 {
		t.Fatalf("len(clicks) = %d, want 2", len(clicks))
	}
	if clicks[0].Page != "first.pdf" || clicks[1].Page != "second.pdf" {
		t.Errorf("order = %q, %q, want first.pdf, second.pdf", clicks[0].Page, clicks[1].Page)
	}

	j := BuildJourneys(Merge(events, Options{}), clicks)[0]
	if got, want := j.Path(), "first.pdf → second.pdf"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestOrderClicksByTimestampThenArrival(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "s", "page": "c", "timestamp": "2025-01-01T10:00:03Z"},
		{"type": "click", "session_id": "s", "page": "no-time"},
		{"type": "click", "session_id": "s", "page": "a", "timestamp": "2025-01-01T10:00:01Z"},
		{"type": "click", "session_id": "s", "page": "b", "timestamp": "2025-01-01T10:00:01Z"},
		{"type": "click", "session_id": "s", "page": "seq", "sequence_order": 9},
	}
	clicks := ExtractClicks(events)
	var got []string
	var seq []int64
	for _, c := range clicks {
		got = append(got, c.Page)
		seq = append(seq, c.Sequence)
	}
	if want := []string{"seq", "a", "b", "c", "no-time"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
	if want := []int64{9, 10, 11, 12, 13}; !reflect.DeepEqual(seq, want) {
		t.Errorf("sequence = %v, want %v", seq, want)
	}
}

func TestExtractClicksGroupsBySession(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "b", "page": "1"},
		{"type": "click", "session_id": "a", "page": "2"},
		{"type": "click", "session_id": "b", "page": "3"},
		{"type": "click", "page": "orphan"},
	}
	clicks := ExtractClicks(events)
	var ids []string
	for _, c := range clicks {
		ids = append(ids, c.SessionID)
	}
	if want := []string{"b", "b", "a"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("sessions = %v, want %v", ids, want)
	}
}

func TestExtractClicksKeepsRawTimestamp(t *testing.T) {
	clicks := ExtractClicks([]RawEvent{
		{"type": "click", "session_id": "s", "page": "/", "timestamp": "garbage", "x_coordinate": 10, "y_coordinate": "20"},
	})
	c := clicks[0]
	if c.Timestamp != nil || c.RawTimestamp != "garbage" {
		t.Errorf("timestamp = %v raw %q, want nil and garbage", c.Timestamp, c.RawTimestamp)
	}
	if c.X == nil || *c.X != 10 || c.Y == nil || *c.Y != 20 {
		t.Errorf("coords = %v, %v, want 10, 20", c.X, c.Y)
	}
	if c.File() != nil {
		t.Errorf("File() = %q, want nil", *c.File())
	}
}

func TestBuildJourneys(t *testing.T) {
	events := []RawEvent{
		{"type": "session_start", "session_id": "s"},
		{"type": "click", "session_id": "s", "page": "/", "sequence_order": 1},
		{"type": "click", "session_id": "s", "page": "pdf/cv.pdf", "sequence_order": 2},
		{"type": "click", "session_id": "s", "page": "", "sequence_order": 3},
		{"type": "click", "session_id": "s", "page": "/about", "sequence_order": 4},
		{"type": "click", "session_id": "s", "page": "https://x.org/pdf/cv.pdf", "sequence_order": 5},
		{"type": "session_end", "session_id": "quiet"},
	}
	sessions := Merge(events, Options{})
	journeys := BuildJourneys(sessions, ExtractClicks(events))
	if len(journeys) != 2 {
		t.Fatalf("len(journeys) = %d, want 2", len(journeys))
	}

	j := journeys[0]
	if want := "Main page → cv.pdf → Link: about → cv.pdf"; j.Path() != want {
		t.Errorf("Path() = %q, want %q", j.Path(), want)
	}
	if want := []string{"cv.pdf"}; !reflect.DeepEqual(j.Files, want) {
		t.Errorf("Files = %v, want %v", j.Files, want)
	}
	if j.Clicks != 5 {
		t.Errorf("Clicks = %d, want 5", j.Clicks)
	}

	quiet := journeys[1]
	if quiet.SessionID != "quiet" || quiet.Path() != NoJourney || quiet.Clicks != 0 {
		t.Errorf("quiet journey = %+v, want empty", quiet)
	}
}

func TestOrderClicksDerivedSequenceFollowsExplicit(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "s", "page": "seq3", "sequence_order": 3},
		{"type": "click", "session_id": "s", "page": "t1", "timestamp": "2025-01-01T10:00:01Z"},
		{"type": "click", "session_id": "s", "page": "seq1", "sequence_order": 1},
		{"type": "click", "session_id": "s", "page": "t2", "timestamp": "2025-01-01T10:00:02Z"},
	}
	var got []int64
	seen := make(map[int64]string)
	for _, c := range ExtractClicks(events) {
		got = append(got, c.Sequence)
		if prev, dup := seen[c.Sequence]; dup {
			t.Errorf("sequence %d shared by %q and %q", c.Sequence, prev, c.Page)
		}
		seen[c.Sequence] = c.Page
	}
	if want := []int64{1, 3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v, want %v", got, want)
	}
}

func TestOrderClicksNegativeExplicitSequence(t *testing.T) {
	events := []RawEvent{
		{"type": "click", "session_id": "s", "page": "neg", "sequence_order": -4},
		{"type": "click", "session_id": "s", "page": "derived"},
	}
	var got []int64
	for _, c := range ExtractClicks(events) {
		got = append(got, c.Sequence)
	}
	if want := []int64{-4, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v, want %v", got, want)
	}
}
