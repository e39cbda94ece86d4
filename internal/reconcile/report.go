package reconcile

import "time"

// SessionRow is one row of the session table.
type SessionRow struct {
	SessionID string  `json:"session_id"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	// DurationSeconds is null when the duration is unknown.
	DurationSeconds *float64 `json:"duration_seconds"`
	ClickCount      int      `json:"click_count"`
	IP              string   `json:"ip"`
	Country         string   `json:"country"`
	City            string   `json:"city"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Downloads       int      `json:"downloads"`
	IPSource        string   `json:"ip_source,omitempty"`
	GeoSource       string   `json:"geo_source,omitempty"`
	Origin          Kind     `json:"origin"`
}

// ClickRow is one row of the click table.
type ClickRow struct {
	SessionID     string   `json:"session_id"`
	Page          string   `json:"page"`
	FileClicked   *string  `json:"file_clicked"`
	Timestamp     *string  `json:"timestamp"`
	SequenceOrder int64    `json:"sequence_order"`
	X             *float64 `json:"x_coordinate,omitempty"`
	Y             *float64 `json:"y_coordinate,omitempty"`
}

// JourneyRow is one row of the journey table.
type JourneyRow struct {
	SessionID  string   `json:"session_id"`
	PagePath   string   `json:"ordered_page_path"`
	Files      []string `json:"distinct_files_clicked"`
	ClickCount int      `json:"click_count"`
	HasJourney bool     `json:"has_journey"`
}

// Report is everything the presentation layer renders from one batch.
type Report struct {
	Sessions []SessionRow `json:"sessions"`
	Clicks   []ClickRow   `json:"clicks"`
	Journeys []JourneyRow `json:"journeys"`
	Summary  Summary      `json:"summary"`
	Files    FileStats    `json:"files"`
}

// Build runs classification, merge and journey reconstruction over one
// batch. It performs no I/O and returns identical output for identical input.
func Build(events []RawEvent, opts Options) Report {
	sessions := Merge(events, opts)
	clicks := ExtractClicks(events)
	journeys := BuildJourneys(sessions, clicks)

	r := Report{
		Sessions: make([]SessionRow, 0, len(sessions)),
		Clicks:   make([]ClickRow, 0, len(clicks)),
		Journeys: make([]JourneyRow, 0, len(journeys)),
		Summary:  Summarize(sessions, clicks),
		Files:    CountFiles(events, clicks, opts.KnownFiles),
	}
	for _, s := range sessions {
		r.Sessions = append(r.Sessions, NewSessionRow(s))
	}
	for _, c := range clicks {
		r.Clicks = append(r.Clicks, NewClickRow(c))
	}
	for _, j := range journeys {
		r.Journeys = append(r.Journeys, JourneyRow{
			SessionID:  j.SessionID,
			PagePath:   j.Path(),
			Files:      j.Files,
			ClickCount: j.Clicks,
			HasJourney: len(j.Pages) > 0,
		})
	}
	return r
}

// NewSessionRow flattens a Session for output.
func NewSessionRow(s Session) SessionRow {
	return SessionRow{
		SessionID:       s.ID,
		StartTime:       formatTime(s.Start),
		EndTime:         formatTime(s.End),
		DurationSeconds: s.Duration,
		ClickCount:      s.Clicks,
		IP:              s.IP,
		Country:         s.Country,
		City:            s.City,
		Latitude:        s.Latitude,
		Longitude:       s.Longitude,
		Downloads:       s.Downloads,
		IPSource:        s.IPSource,
		GeoSource:       s.GeoSource,
		Origin:          s.Origin,
	}
}

// NewClickRow flattens a ClickEvent for output.
func NewClickRow(c ClickEvent) ClickRow {
	row := ClickRow{
		SessionID:     c.SessionID,
		Page:          c.Page,
		FileClicked:   c.File(),
		Timestamp:     formatTime(c.Timestamp),
		SequenceOrder: c.Sequence,
		X:             c.X,
		Y:             c.Y,
	}
	if row.Timestamp == nil && c.RawTimestamp != "" {
		raw := c.RawTimestamp
		row.Timestamp = &raw
	}
	return row
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
