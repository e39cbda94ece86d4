package reconcile

import (
	"encoding/json"
	"testing"
)

func sampleEvents() []RawEvent {
	return []RawEvent{
		{"type": "session_start", "session_id": "a", "timestamp": "2025-08-27T10:00:00Z", "geo_country": "France", "geo_city": "Dijon", "user_ip": "9.9.9.9"},
		{"type": "click", "session_id": "a", "page": "pdf/thesis.pdf", "sequence_order": 2, "timestamp": "2025-08-27T10:00:10Z"},
		{"type": "click", "session_id": "a", "page": "/", "sequence_order": 1, "timestamp": "whenever"},
		{"type": "session_end", "session_id": "s1", "session_duration": 13662, "click_count": 0, "timestamp": "2025-08-27T10:57:57Z", "city": "Beaune"},
		{"type": "session_end", "session_id": "a", "timestamp": "2025-08-27T10:05:00Z"},
		{"type": "custom_event", "session_id": "z", "country": "DE"},
		{"type": "click", "page": "orphan"},
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	events := sampleEvents()
	first, err := json.Marshal(Build(events, Options{KnownFiles: []string{"thesis.pdf"}}))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Build(events, Options{KnownFiles: []string{"thesis.pdf"}}))
		if err != nil {
			t.Fatal(err)
		}
		if string(again) != string(first) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestBuildTables(t *testing.T) {
	r := Build(sampleEvents(), Options{})

	if len(r.Sessions) != 3 {
		t.Fatalf("len(Sessions) = %d, want 3", len(r.Sessions))
	}
	a := r.Sessions[0]
	if a.SessionID != "a" || a.StartTime == nil || *a.StartTime != "2025-08-27T10:00:00Z" {
		t.Errorf("a = %+v, want start 2025-08-27T10:00:00Z", a)
	}
	if a.DurationSeconds == nil || *a.DurationSeconds != 300 {
		t.Errorf("a duration = %v, want 300", a.DurationSeconds)
	}
	if a.ClickCount != 2 || a.Country != "France" || a.IP != "9.9.9.9" {
		t.Errorf("a = %+v", a)
	}

	s1 := r.Sessions[1]
	if s1.SessionID != "s1" || s1.StartTime != nil || s1.ClickCount != 0 || s1.City != "Beaune" {
		t.Errorf("s1 = %+v", s1)
	}
	if s1.DurationSeconds == nil || *s1.DurationSeconds != 13662 {
		t.Errorf("s1 duration = %v, want 13662", s1.DurationSeconds)
	}

	if len(r.Clicks) != 2 {
		t.Fatalf("len(Clicks) = %d, want 2", len(r.Clicks))
	}
	if c := r.Clicks[0]; c.Page != "/" || c.SequenceOrder != 1 || c.FileClicked != nil || c.Timestamp == nil || *c.Timestamp != "whenever" {
		t.Errorf("Clicks[0] = %+v", c)
	}
	if c := r.Clicks[1]; c.FileClicked == nil || *c.FileClicked != "thesis.pdf" || c.SequenceOrder != 2 {
		t.Errorf("Clicks[1] = %+v", c)
	}

	if len(r.Journeys) != 3 {
		t.Fatalf("len(Journeys) = %d, want 3", len(r.Journeys))
	}
	if j := r.Journeys[0]; j.PagePath != "Main page → thesis.pdf" || j.ClickCount != 2 || !j.HasJourney {
		t.Errorf("Journeys[0] = %+v", j)
	}
	if j := r.Journeys[1]; j.PagePath != NoJourney || j.HasJourney || len(j.Files) != 0 {
		t.Errorf("Journeys[1] = %+v", j)
	}
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil, Options{})
	if len(r.Sessions) != 0 || len(r.Clicks) != 0 || len(r.Journeys) != 0 {
		t.Errorf("Build(nil) = %+v, want empty tables", r)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["sessions"].([]any); !ok {
		t.Errorf("sessions = %v, want an empty array", m["sessions"])
	}
}
