package reconcile

import "sort"

// Count is a label with an occurrence count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary holds the headline numbers of a reconciled batch.
type Summary struct {
	TotalSessions         int      `json:"total_sessions"`
	TotalClicks           int      `json:"total_clicks"`
	TotalDownloads        int      `json:"total_downloads"`
	SessionsWithClicks    int      `json:"sessions_with_clicks"`
	SessionsWithoutClicks int      `json:"sessions_without_clicks"`
	UnknownDurations      int      `json:"unknown_durations"`
	AverageDuration       *float64 `json:"average_duration_seconds"`
	Countries             []Count  `json:"countries"`
	Cities                []Count  `json:"cities"`
}

// Summarize computes totals over sessions and their click events. The
// average duration only covers sessions whose duration is known.
func Summarize(sessions []Session, clicks []ClickEvent) Summary {
	sum := Summary{
		TotalSessions: len(sessions),
		TotalClicks:   len(clicks),
	}
	countries := make(map[string]int)
	cities := make(map[string]int)
	var total float64
	var known int
	for _, s := range sessions {
		if s.Clicks > 0 {
			sum.SessionsWithClicks++
		} else {
			sum.SessionsWithoutClicks++
		}
		sum.TotalDownloads += s.Downloads
		if s.Duration == nil {
			sum.UnknownDurations++
		} else {
			total += *s.Duration
			known++
		}
		countries[s.Country]++
		cities[s.City]++
	}
	if known > 0 {
		avg := total / float64(known)
		sum.AverageDuration = &avg
	}
	sum.Countries = sortedCounts(countries)
	sum.Cities = sortedCounts(cities)
	return sum
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FileCount is the activity recorded for one file.
type FileCount struct {
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Clicks    int      `json:"clicks"`
	Downloads int      `json:"downloads"`
	Known     bool     `json:"known"`
}

// FileStats groups per-file counts by category.
type FileStats struct {
	Images    []FileCount `json:"images"`
	Documents []FileCount `json:"documents"`
	Other     []FileCount `json:"other"`
}

// CountFiles tallies clicks and downloads per file name. Every catalog entry
// is present even without activity; files seen in events but missing from
// the catalog are included with Known=false.
func CountFiles(events []RawEvent, clicks []ClickEvent, catalog []string) FileStats {
	files := make(map[string]*FileCount)
	get := func(name string) *FileCount {
		fc, ok := files[name]
		if !ok {
			cat, found := CategoryOf(name)
			if !found {
				cat = CategoryOther
			}
			fc = &FileCount{Name: name, Category: cat}
			files[name] = fc
		}
		return fc
	}

	for _, name := range catalog {
		if name == "" {
			continue
		}
		get(name).Known = true
	}
	for _, c := range clicks {
		if c.Ref.IsFile() {
			get(c.Ref.Name).Clicks++
		}
	}
	for _, ev := range events {
		if ev == nil || ev.Kind() != KindFileDownload || ev.SessionID() == "" {
			continue
		}
		if name := downloadName(ev); name != "" {
			get(name).Downloads++
		}
	}

	stats := FileStats{Images: []FileCount{}, Documents: []FileCount{}, Other: []FileCount{}}
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fc := *files[n]
		switch fc.Category {
		case CategoryImage:
			stats.Images = append(stats.Images, fc)
		case CategoryDocument:
			stats.Documents = append(stats.Documents, fc)
		default:
			stats.Other = append(stats.Other, fc)
		}
	}
	for _, group := range [][]FileCount{stats.Images, stats.Documents, stats.Other} {
		sortFileCounts(group)
	}
	return stats
}

func downloadName(ev RawEvent) string {
	if s, ok := ev.String("file_name"); ok {
		return s
	}
	if s, ok := ev.String("file_url"); ok {
		if ref := ExtractFilename(s); ref.IsFile() {
			return ref.Name
		}
	}
	return ""
}

func sortFileCounts(fc []FileCount) {
	sort.SliceStable(fc, func(i, j int) bool {
		if fc[i].Clicks != fc[j].Clicks {
			return fc[i].Clicks > fc[j].Clicks
		}
		if fc[i].Downloads != fc[j].Downloads {
			return fc[i].Downloads > fc[j].Downloads
		}
		return fc[i].Name < fc[j].Name
	})
}
