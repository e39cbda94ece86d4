// Package alert emails the site owner when new external visitors arrive.
package alert

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"siteinsight/internal/reconcile"
)

// Visitor is one session worth alerting on.
type Visitor struct {
	SessionID string
	IP        string
	City      string
	Country   string
	Start     time.Time
}

// Candidates returns sessions that started within window before now and do
// not belong to the owner, oldest first. Sessions seen only through clicks
// or session_end have no start and are never candidates.
func Candidates(events []reconcile.RawEvent, now time.Time, window time.Duration, ownerIP string) []Visitor {
	cutoff := now.Add(-window)
	var out []Visitor
	for _, s := range reconcile.Merge(events, reconcile.Options{}) {
		if s.Start == nil || s.Start.Before(cutoff) || s.Start.After(now) {
			continue
		}
		if ownerIP != "" && s.IP == ownerIP {
			continue
		}
		out = append(out, Visitor{
			SessionID: s.ID,
			IP:        s.IP,
			City:      s.City,
			Country:   s.Country,
			Start:     *s.Start,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Unnotified drops visitors whose session is in notified.
func Unnotified(visitors []Visitor, notified map[string]bool) []Visitor {
	out := visitors[:0:0]
	for _, v := range visitors {
		if !notified[v.SessionID] {
			out = append(out, v)
		}
	}
	return out
}

// SessionIDs lists the session ids of visitors.
func SessionIDs(visitors []Visitor) []string {
	ids := make([]string, 0, len(visitors))
	for _, v := range visitors {
		ids = append(ids, v.SessionID)
	}
	return ids
}

var alertTpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:sans-serif">
  <h2>{{len .Visitors}} new visitor session{{if gt (len .Visitors) 1}}s{{end}}</h2>
  <table cellpadding="4" style="border-collapse:collapse">
    <tr><th align="left">Started (UTC)</th><th align="left">Session</th><th align="left">IP</th><th align="left">Location</th></tr>
    {{range .Visitors}}<tr><td>{{.Start.Format "2006-01-02 15:04:05"}}</td><td>{{.SessionID}}</td><td>{{.IP}}</td><td>{{.City}}, {{.Country}}</td></tr>
    {{end}}
  </table>
  <p style="color:#888">Checked at {{.Now.Format "2006-01-02 15:04:05"}} UTC.</p>
</body>
</html>`))

// Compose renders the alert email for visitors.
func Compose(visitors []Visitor, now time.Time) (Message, error) {
	var body bytes.Buffer
	err := alertTpl.Execute(&body, struct {
		Visitors []Visitor
		Now      time.Time
	}{visitors, now.UTC()})
	if err != nil {
		return Message{}, fmt.Errorf("render alert: %w", err)
	}
	subject := "New visitor session on your site"
	if len(visitors) > 1 {
		subject = fmt.Sprintf("%d new visitor sessions on your site", len(visitors))
	}
	return Message{Subject: subject, HTML: body.String()}, nil
}
