package consensus

import (
	"fmt"
	"strings"
)

// Track names for the dual-track analysis fan-out.
const (
	TrackPrecision = "precision"
	TrackRecall    = "recall"
	TrackSingle    = "single"
)

// Item is one finding in an analysis report.
type Item struct {
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// Report is the structured output of one analysis track.
type Report struct {
	Track    string `json:"track,omitempty"`
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
	Summary  string `json:"summary"`
	Themes   []Item `json:"themes"`
	Claims   []Item `json:"claims"`
	Quotes   []Item `json:"quotes"`
}

// Validate ensures the report identifies its origin and carries content.
func (r Report) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("consensus: report missing model")
	}
	if strings.TrimSpace(r.Summary) == "" && len(r.Themes) == 0 && len(r.Claims) == 0 && len(r.Quotes) == 0 {
		return fmt.Errorf("consensus: report from %s is empty", r.Model)
	}
	return nil
}
