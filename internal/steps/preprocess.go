package steps

import (
	"context"
	"encoding/json"
	"strings"

	"castpress/internal/command"
	"castpress/internal/services"
	"castpress/internal/transcript"
)

// Preprocess collapses a transcript into analysis-ready prose: consecutive
// segments from the same speaker are merged and whitespace is squashed. The
// result no longer aligns word-for-word with the audio, which is why the
// state graph treats it as terminal.
type Preprocess struct {
	model string
}

// NewPreprocess builds the preprocess adapter. The model id labels the
// output document and must be the transcription model of the chain.
func NewPreprocess(model string) *Preprocess {
	return &Preprocess{model: model}
}

var _ command.Runner = (*Preprocess)(nil)

// Run merges the input transcript's segments and returns the preprocessed
// document.
func (p *Preprocess) Run(_ context.Context, req command.Request) (json.RawMessage, error) {
	if len(req.Input) == 0 {
		return nil, services.Wrap(services.ErrStepFailed, StepPreprocess, "decode input",
			"input transcript required", nil)
	}
	var doc transcript.Document
	if err := json.Unmarshal(req.Input, &doc); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepPreprocess, "decode input", "", err)
	}
	if doc.Variant == transcript.VariantPreprocessed {
		return nil, services.Wrap(services.ErrConfiguration, StepPreprocess, "validate input",
			"input transcript is already preprocessed", nil)
	}
	if len(doc.Segments) == 0 {
		return nil, services.Wrap(services.ErrStepOutputInvalid, StepPreprocess, "validate input",
			"input transcript has no segments", nil)
	}

	out := transcript.Document{
		Variant:  transcript.VariantPreprocessed,
		Model:    p.model,
		Language: doc.Language,
		Segments: mergeSegments(doc.Segments),
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepPreprocess, "encode transcript", "", err)
	}
	return encoded, nil
}

// mergeSegments joins consecutive same-speaker segments. Word-level timings
// are dropped: merged text no longer maps onto them.
func mergeSegments(segments []transcript.Segment) []transcript.Segment {
	var merged []transcript.Segment
	for _, seg := range segments {
		text := squashWhitespace(seg.Text)
		if text == "" {
			continue
		}
		if len(merged) > 0 && merged[len(merged)-1].Speaker == seg.Speaker {
			last := &merged[len(merged)-1]
			last.Text = last.Text + " " + text
			last.End = seg.End
			continue
		}
		merged = append(merged, transcript.Segment{
			Text:    text,
			Start:   seg.Start,
			End:     seg.End,
			Speaker: seg.Speaker,
		})
	}
	return merged
}

func squashWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
