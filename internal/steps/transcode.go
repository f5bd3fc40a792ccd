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
)

// audioFileName is the normalized speech-recognition input produced by the
// transcode step: mono 16kHz PCM, the format WhisperX expects.
const audioFileName = "audio.wav"

// AudioMeta is the audio-meta artifact payload.
type AudioMeta struct {
	File string `json:"file"`
	whisper.AudioInfo
}

// Transcode normalizes the fetched source audio for speech recognition.
type Transcode struct {
	store     *artifact.Store
	whisper   *whisper.Service
	transcode func(ctx context.Context, source, dest string) error
	probe     func(ctx context.Context, path string) (whisper.AudioInfo, error)
}

// NewTranscode builds the transcode adapter.
func NewTranscode(store *artifact.Store, svc *whisper.Service) *Transcode {
	t := &Transcode{store: store, whisper: svc}
	t.transcode = svc.Transcode
	t.probe = func(ctx context.Context, path string) (whisper.AudioInfo, error) {
		return whisper.ProbeAudio(ctx, whisper.FFprobeBinary, path)
	}
	return t
}

// WithTranscoder overrides the transcode command (useful for tests).
func (t *Transcode) WithTranscoder(fn func(ctx context.Context, source, dest string) error) {
	if fn != nil {
		t.transcode = fn
	}
}

// WithProber overrides the audio probe (useful for tests).
func (t *Transcode) WithProber(fn func(ctx context.Context, path string) (whisper.AudioInfo, error)) {
	if fn != nil {
		t.probe = fn
	}
}

var _ command.Runner = (*Transcode)(nil)

// Run converts the source audio into the normalized WAV and returns the
// probed audio metadata document.
func (t *Transcode) Run(ctx context.Context, req command.Request) (json.RawMessage, error) {
	meta, err := loadMeta(t.store, req.Input)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscode, "load episode metadata", "", err)
	}
	source := filepath.Join(t.store.Dir(), meta.SourceFile)
	if _, err := os.Stat(source); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscode, "locate source",
			fmt.Sprintf("source audio %s missing", meta.SourceFile), err)
	}

	dest := filepath.Join(t.store.Dir(), audioFileName)
	if err := t.transcode(ctx, source, dest); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscode, "transcode", "", err)
	}
	info, err := t.probe(ctx, dest)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscode, "probe audio", "", err)
	}

	encoded, err := json.Marshal(AudioMeta{File: audioFileName, AudioInfo: info})
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepTranscode, "encode metadata", "", err)
	}
	return encoded, nil
}

// loadMeta decodes the episode metadata from the step input, falling back to
// the persisted artifact when the orchestrator skipped the producing step.
func loadMeta(store *artifact.Store, input json.RawMessage) (Meta, error) {
	var meta Meta
	if len(input) > 0 {
		if err := json.Unmarshal(input, &meta); err == nil && meta.SourceFile != "" {
			return meta, nil
		}
	}
	if err := store.LoadJSON(artifact.Descriptor{Kind: artifact.KindEpisodeMeta}, &meta); err != nil {
		return meta, err
	}
	if meta.SourceFile == "" {
		return meta, fmt.Errorf("episode metadata missing source file")
	}
	return meta, nil
}
