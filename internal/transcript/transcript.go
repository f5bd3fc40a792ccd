package transcript

import (
	"strings"
)

// Word is a single recognized word with timing. Speaker is only set on
// diarized transcripts.
type Word struct {
	Text    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Segment is a contiguous span of recognized speech.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

// Document is one transcript artifact payload.
type Document struct {
	Variant  Variant   `json:"variant"`
	Model    string    `json:"model"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Text concatenates the segment texts with single spaces.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.Segments))
	for _, seg := range d.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// SpeakerText renders the transcript with speaker labels, one segment per
// line. Segments without a speaker keep their bare text.
func (d Document) SpeakerText() string {
	var b strings.Builder
	for _, seg := range d.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(text)
	}
	return b.String()
}

// Duration returns the end time of the last segment in seconds.
func (d Document) Duration() float64 {
	if len(d.Segments) == 0 {
		return 0
	}
	return d.Segments[len(d.Segments)-1].End
}
