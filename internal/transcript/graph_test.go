package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"castpress/internal/artifact"
	"castpress/internal/services"
)

func TestCanProduceTable(t *testing.T) {
	cases := []struct {
		target, source Variant
		want           bool
	}{
		{VariantDiarized, VariantBase, true},
		{VariantPreprocessed, VariantBase, true},
		{VariantPreprocessed, VariantDiarized, true},
		{VariantDiarized, VariantDiarized, false},
		{VariantDiarized, VariantPreprocessed, false},
		{VariantPreprocessed, VariantPreprocessed, false},
		{VariantBase, VariantBase, false},
		{VariantBase, VariantDiarized, false},
	}
	for _, tc := range cases {
		if got := CanProduce(tc.target, tc.source); got != tc.want {
			t.Fatalf("CanProduce(%s, %s) = %v, want %v", tc.target, tc.source, got, tc.want)
		}
	}
}

func TestPickSourcePrefersMostProcessed(t *testing.T) {
	source, err := PickSource(VariantPreprocessed, []Variant{VariantBase, VariantDiarized})
	if err != nil {
		t.Fatalf("PickSource: %v", err)
	}
	if source != VariantDiarized {
		t.Fatalf("want diarized over base, got %s", source)
	}
}

func TestPickSourceRejectsTerminalInput(t *testing.T) {
	_, err := PickSource(VariantDiarized, []Variant{VariantPreprocessed})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestPickSourceNoInput(t *testing.T) {
	_, err := PickSource(VariantDiarized, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func seedInventory(t *testing.T, names ...string) *artifact.Inventory {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	inv, err := artifact.Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	return inv
}

func TestMostProcessedTieBreak(t *testing.T) {
	models := ModelSet{Transcription: "large-v3", Diarization: "pyannote"}

	inv := seedInventory(t, "transcript-base.large-v3.json", "transcript-diarized.pyannote.json")
	variant, ok := MostProcessed(inv, models)
	if !ok || variant != VariantDiarized {
		t.Fatalf("MostProcessed = %s, %v; want diarized", variant, ok)
	}

	inv = seedInventory(t, "transcript-base.large-v3.json")
	variant, ok = MostProcessed(inv, models)
	if !ok || variant != VariantBase {
		t.Fatalf("MostProcessed = %s, %v; want base", variant, ok)
	}

	inv = seedInventory(t)
	if _, ok := MostProcessed(inv, models); ok {
		t.Fatal("empty inventory should report no transcript")
	}
}

func TestDocumentText(t *testing.T) {
	doc := Document{
		Segments: []Segment{
			{Text: " Hello there. ", Speaker: "SPEAKER_00"},
			{Text: ""},
			{Text: "Welcome back.", Speaker: "SPEAKER_01"},
		},
	}
	if got := doc.Text(); got != "Hello there. Welcome back." {
		t.Fatalf("Text() = %q", got)
	}
	want := "SPEAKER_00: Hello there.\nSPEAKER_01: Welcome back."
	if got := doc.SpeakerText(); got != want {
		t.Fatalf("SpeakerText() = %q", got)
	}
}
