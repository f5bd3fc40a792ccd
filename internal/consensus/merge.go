package consensus

import (
	"strings"

	"castpress/internal/services"
	"castpress/internal/textutil"
)

// TrackInfo identifies one contributing track in a merged document.
type TrackInfo struct {
	Track   string `json:"track"`
	Model   string `json:"model"`
	Summary string `json:"summary,omitempty"`
}

// MergedItem is a deduplicated finding with the tracks that produced it.
type MergedItem struct {
	Text    string   `json:"text"`
	Note    string   `json:"note,omitempty"`
	Sources []string `json:"sources"`
}

// Document is the reconciled union of all analysis tracks.
type Document struct {
	Tracks  []TrackInfo  `json:"tracks"`
	Summary string       `json:"summary"`
	Themes  []MergedItem `json:"themes"`
	Claims  []MergedItem `json:"claims"`
	Quotes  []MergedItem `json:"quotes"`
}

// Merge reconciles the reports mechanically. Items are deduplicated by the
// normalized text key; when tracks disagree on surface form, the first
// report's wording wins and every contributing track is recorded. Report
// order matters only for tie-breaks, so callers pass the precision track
// first.
func Merge(reports ...Report) (Document, error) {
	if len(reports) == 0 {
		return Document{}, services.Wrap(services.ErrConfiguration, "consensus", "merge", "no reports to merge", nil)
	}
	for _, report := range reports {
		if err := report.Validate(); err != nil {
			return Document{}, services.Wrap(services.ErrStepOutputInvalid, "consensus", "merge", "", err)
		}
	}

	doc := Document{
		Tracks: make([]TrackInfo, 0, len(reports)),
	}
	for _, report := range reports {
		track := report.Track
		if track == "" {
			track = TrackSingle
		}
		doc.Tracks = append(doc.Tracks, TrackInfo{
			Track:   track,
			Model:   report.Model,
			Summary: strings.TrimSpace(report.Summary),
		})
		if doc.Summary == "" {
			doc.Summary = strings.TrimSpace(report.Summary)
		}
	}

	doc.Themes = mergeItems(reports, func(r Report) []Item { return r.Themes })
	doc.Claims = mergeItems(reports, func(r Report) []Item { return r.Claims })
	doc.Quotes = mergeItems(reports, func(r Report) []Item { return r.Quotes })
	return doc, nil
}

func mergeItems(reports []Report, pick func(Report) []Item) []MergedItem {
	merged := []MergedItem{}
	index := map[string]int{}
	for _, report := range reports {
		track := report.Track
		if track == "" {
			track = TrackSingle
		}
		for _, item := range pick(report) {
			text := strings.TrimSpace(item.Text)
			if text == "" {
				continue
			}
			key := textutil.NormalizeKey(text)
			if key == "" {
				continue
			}
			if at, ok := index[key]; ok {
				if !containsString(merged[at].Sources, track) {
					merged[at].Sources = append(merged[at].Sources, track)
				}
				if merged[at].Note == "" && strings.TrimSpace(item.Note) != "" {
					merged[at].Note = strings.TrimSpace(item.Note)
				}
				continue
			}
			index[key] = len(merged)
			merged = append(merged, MergedItem{
				Text:    text,
				Note:    strings.TrimSpace(item.Note),
				Sources: []string{track},
			})
		}
	}
	return merged
}

func containsString(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
