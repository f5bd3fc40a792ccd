package steps

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/services/whisper"
	"castpress/internal/transcript"
)

func seedSource(t *testing.T, workdir string) json.RawMessage {
	t.Helper()
	if err := os.WriteFile(filepath.Join(workdir, "source.mp3"), []byte("audio"), 0o644); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	meta, err := json.Marshal(Meta{SourceFile: "source.mp3"})
	if err != nil {
		t.Fatalf("encode meta: %v", err)
	}
	return meta
}

func TestTranscodeProducesAudioMeta(t *testing.T) {
	workdir := t.TempDir()
	store := artifact.NewStore(workdir)
	svc := whisper.NewService(whisper.Config{Model: "large-v3"}, whisper.FFmpegCommand)

	adapter := NewTranscode(store, svc)
	var transcoded bool
	adapter.WithTranscoder(func(_ context.Context, source, dest string) error {
		transcoded = true
		return os.WriteFile(dest, []byte("wav"), 0o644)
	})
	adapter.WithProber(func(_ context.Context, path string) (whisper.AudioInfo, error) {
		return whisper.AudioInfo{Codec: "pcm_s16le", Duration: 90.5, SampleRate: 16000, Channels: 1}, nil
	})

	output, err := adapter.Run(context.Background(), command.Request{
		Step:  StepTranscode,
		Input: seedSource(t, workdir),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !transcoded {
		t.Fatal("expected transcoder to run")
	}
	var meta AudioMeta
	if err := json.Unmarshal(output, &meta); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if meta.File != "audio.wav" || meta.SampleRate != 16000 {
		t.Fatalf("unexpected audio meta %+v", meta)
	}
}

func TestTranscodeLoadsMetaFromStoreWhenInputEmpty(t *testing.T) {
	workdir := t.TempDir()
	store := artifact.NewStore(workdir)
	meta := seedSource(t, workdir)
	if _, err := store.Save(artifact.Descriptor{Kind: artifact.KindEpisodeMeta}, meta); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	svc := whisper.NewService(whisper.Config{}, whisper.FFmpegCommand)
	adapter := NewTranscode(store, svc)
	adapter.WithTranscoder(func(_ context.Context, _, dest string) error {
		return os.WriteFile(dest, []byte("wav"), 0o644)
	})
	adapter.WithProber(func(_ context.Context, _ string) (whisper.AudioInfo, error) {
		return whisper.AudioInfo{Codec: "pcm_s16le"}, nil
	})

	if _, err := adapter.Run(context.Background(), command.Request{Step: StepTranscode}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestTranscribeProducesBaseDocument(t *testing.T) {
	workdir := t.TempDir()
	store := artifact.NewStore(workdir)
	if err := os.WriteFile(filepath.Join(workdir, audioFileName), []byte("wav"), 0o644); err != nil {
		t.Fatalf("seed audio: %v", err)
	}

	svc := whisper.NewService(whisper.Config{Model: "large-v3"}, whisper.FFmpegCommand)
	adapter := NewTranscribe(store, svc, "en")
	adapter.WithTranscriber(func(_ context.Context, _, _, _ string) ([]transcript.Segment, error) {
		return []transcript.Segment{{Text: "hello", Start: 0, End: 1.5}}, nil
	})

	output, err := adapter.Run(context.Background(), command.Request{Step: StepTranscribe})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var doc transcript.Document
	if err := json.Unmarshal(output, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if doc.Variant != transcript.VariantBase || doc.Model != "large-v3" {
		t.Fatalf("unexpected document identity %+v", doc)
	}
	if len(doc.Segments) != 1 || doc.Segments[0].Text != "hello" {
		t.Fatalf("unexpected segments %+v", doc.Segments)
	}
}

func TestDiarizeProducesDiarizedDocument(t *testing.T) {
	workdir := t.TempDir()
	store := artifact.NewStore(workdir)
	if err := os.WriteFile(filepath.Join(workdir, audioFileName), []byte("wav"), 0o644); err != nil {
		t.Fatalf("seed audio: %v", err)
	}

	svc := whisper.NewService(whisper.Config{DiarizationModel: "pyannote-3.1"}, whisper.FFmpegCommand)
	adapter := NewDiarize(store, svc, "")
	adapter.WithDiarizer(func(_ context.Context, _, _, _ string) ([]transcript.Segment, error) {
		return []transcript.Segment{{Text: "hi", Speaker: "SPEAKER_00"}}, nil
	})

	output, err := adapter.Run(context.Background(), command.Request{Step: StepDiarize})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var doc transcript.Document
	if err := json.Unmarshal(output, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if doc.Variant != transcript.VariantDiarized || doc.Model != "pyannote-3.1" {
		t.Fatalf("unexpected document identity %+v", doc)
	}
	if doc.Segments[0].Speaker != "SPEAKER_00" {
		t.Fatalf("expected speaker label, got %+v", doc.Segments[0])
	}
}
