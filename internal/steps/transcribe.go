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

// Transcribe produces the base transcript from the normalized audio.
type Transcribe struct {
	store      *artifact.Store
	whisper    *whisper.Service
	language   string
	transcribe func(ctx context.Context, source, outputDir, language string) ([]transcript.Segment, error)
}

// NewTranscribe builds the transcribe adapter.
func NewTranscribe(store *artifact.Store, svc *whisper.Service, language string) *Transcribe {
	t := &Transcribe{store: store, whisper: svc, language: language}
	t.transcribe = svc.Transcribe
	return t
}

// WithTranscriber overrides the recognition command (useful for tests).
func (t *Transcribe) WithTranscriber(fn func(ctx context.Context, source, outputDir, language string) ([]transcript.Segment, error)) {
	if fn != nil {
		t.transcribe = fn
	}
}

var _ command.Runner = (*Transcribe)(nil)

// Run recognizes speech in the normalized audio and returns the base
// transcript document.
func (t *Transcribe) Run(ctx context.Context, _ command.Request) (json.RawMessage, error) {
	source := filepath.Join(t.store.Dir(), audioFileName)
	if _, err := os.Stat(source); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscribe, "locate audio",
			fmt.Sprintf("normalized audio %s missing", audioFileName), err)
	}

	segments, err := t.transcribe(ctx, source, t.store.Dir(), t.language)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscribe, "recognize speech", "", err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrStepOutputInvalid, StepTranscribe, "recognize speech",
			"recognition produced no segments", nil)
	}

	doc := transcript.Document{
		Variant:  transcript.VariantBase,
		Model:    t.whisper.Model(),
		Language: t.language,
		Segments: segments,
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscribe, "encode transcript", "", err)
	}
	return encoded, nil
}
