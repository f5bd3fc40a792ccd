package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/services"
	"castpress/internal/services/whisper"
	"castpress/internal/transcript"
)

// Diarize produces the speaker-attributed transcript. Word alignment is an
// internal precondition of diarization and never a separate step; the
// recognizer re-runs over the audio with diarization enabled rather than
// patching speakers onto the base transcript.
type Diarize struct {
	store    *artifact.Store
	whisper  *whisper.Service
	language string
	diarize  func(ctx context.Context, source, outputDir, language string) ([]transcript.Segment, error)
}

// NewDiarize builds the diarize adapter.
func NewDiarize(store *artifact.Store, svc *whisper.Service, language string) *Diarize {
	d := &Diarize{store: store, whisper: svc, language: language}
	d.diarize = svc.Diarize
	return d
}

// WithDiarizer overrides the diarization command (useful for tests).
func (d *Diarize) WithDiarizer(fn func(ctx context.Context, source, outputDir, language string) ([]transcript.Segment, error)) {
	if fn != nil {
		d.diarize = fn
	}
}

var _ command.Runner = (*Diarize)(nil)

// Run diarizes the normalized audio and returns the speaker-attributed
// transcript document.
func (d *Diarize) Run(ctx context.Context, _ command.Request) (json.RawMessage, error) {
	source := filepath.Join(d.store.Dir(), audioFileName)
	if _, err := os.Stat(source); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepDiarize, "locate audio",
			fmt.Sprintf("normalized audio %s missing", audioFileName), err)
	}

	segments, err := d.diarize(ctx, source, d.store.Dir(), d.language)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepDiarize, "diarize", "", err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrStepOutputInvalid, StepDiarize, "diarize",
			"diarization produced no segments", nil)
	}

	doc := transcript.Document{
		Variant:  transcript.VariantDiarized,
		Model:    d.whisper.DiarizationModel(),
		Language: d.language,
		Segments: segments,
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepDiarize, "encode transcript", "", err)
	}
	return encoded, nil
}
