package steps

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/consensus"
	"castpress/internal/testsupport"
)

func TestExportRendersConsensusPage(t *testing.T) {
	store := testsupport.NewStore(t)
	doc := consensus.Document{
		Tracks: []consensus.TrackInfo{
			{Track: consensus.TrackPrecision, Model: "model-a"},
			{Track: consensus.TrackRecall, Model: "model-b"},
		},
		Summary: "An episode about caching.",
		Themes: []consensus.MergedItem{
			{Text: "cache invalidation", Sources: []string{consensus.TrackPrecision, consensus.TrackRecall}},
			{Text: "naming things", Sources: []string{consensus.TrackRecall}},
		},
	}
	testsupport.SeedArtifact(t, store, artifact.Descriptor{Kind: artifact.KindConsensus}, doc)
	testsupport.SeedArtifact(t, store, artifact.Descriptor{Kind: artifact.KindAgreement}, consensus.Agreement{
		Score:          72,
		TrackA:         consensus.TrackPrecision,
		TrackB:         consensus.TrackRecall,
		UniqueToA:      []string{"host background"},
		Contradictions: []string{"episode length"},
	})

	adapter := NewExport(store, testEpisode("source.mp3"))
	output, err := adapter.Run(context.Background(), command.Request{Step: StepExport})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var result ExportResult
	if err := json.Unmarshal(output, &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.File != "export.md" || result.SizeBytes == 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	page, err := store.Load(artifact.Descriptor{Kind: artifact.KindExport})
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	text := string(page)
	for _, want := range []string{
		"# Example Show: Pilot",
		"Published 2026-01-05",
		"An episode about caching.",
		"- cache invalidation",
		"- naming things [recall only]",
		"Score: 72/100",
		"- Contradiction: episode length",
		"- Only precision: host background",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected page to contain %q, got:\n%s", want, text)
		}
	}
}

func TestExportFallsBackToSingleAnalysis(t *testing.T) {
	store := testsupport.NewStore(t)
	report := consensus.Report{
		Model:   "model-a",
		Summary: "solo analysis",
		Claims:  []consensus.Item{{Text: "claims things"}},
	}
	testsupport.SeedArtifact(t, store, artifact.Descriptor{Kind: artifact.KindAnalysis, Track: consensus.TrackSingle, Model: "model-a"}, report)

	adapter := NewExport(store, testEpisode("source.mp3"))
	if _, err := adapter.Run(context.Background(), command.Request{Step: StepExport}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	page, err := store.Load(artifact.Descriptor{Kind: artifact.KindExport})
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	if !strings.Contains(string(page), "solo analysis") {
		t.Fatalf("expected single-analysis content, got:\n%s", page)
	}
}

func TestExportWithoutAnalysisFails(t *testing.T) {
	store := testsupport.NewStore(t)
	adapter := NewExport(store, testEpisode("source.mp3"))
	if _, err := adapter.Run(context.Background(), command.Request{Step: StepExport}); err == nil {
		t.Fatal("expected export to fail with nothing to render")
	}
}
