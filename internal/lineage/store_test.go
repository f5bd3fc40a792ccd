package lineage

import (
	"context"
	"path/filepath"
	"testing"

	"castpress/internal/artifact"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "lineage.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndQueryByEpisode(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Record{
		RunID:     "run-1",
		Episode:   "example-show-2026-01-05",
		Step:      "transcribe",
		Kind:      artifact.KindBase,
		Model:     "large-v3",
		Operation: "produced",
		Path:      "transcript-base.large-v3.json",
	}
	if _, err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	second := first
	second.Step = "diarize"
	second.Kind = artifact.KindDiarized
	second.Model = "pyannote-3.1"
	second.Parent = first.Path
	second.Path = "transcript-diarized.pyannote-31.json"
	if _, err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	records, err := store.ByEpisode(ctx, first.Episode)
	if err != nil {
		t.Fatalf("ByEpisode returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Step != "transcribe" || records[1].Step != "diarize" {
		t.Fatalf("expected chronological order, got %+v", records)
	}
	if records[1].Parent != first.Path {
		t.Fatalf("expected parent %q, got %q", first.Path, records[1].Parent)
	}
	if records[0].CreatedAt.IsZero() {
		t.Fatal("expected timestamp recorded")
	}
}

func TestQueryByRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, runID := range []string{"run-1", "run-2", "run-1"} {
		if _, err := store.Append(ctx, Record{
			RunID:     runID,
			Episode:   "ep",
			Step:      "fetch",
			Kind:      artifact.KindEpisodeMeta,
			Operation: "produced",
			Path:      "episode-meta.json",
		}); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	records, err := store.ByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ByRun returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for run-1, got %d", len(records))
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineage.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := store.Append(context.Background(), Record{
		RunID: "run-1", Episode: "ep", Step: "fetch",
		Kind: artifact.KindEpisodeMeta, Operation: "produced", Path: "episode-meta.json",
	}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.ByEpisode(context.Background(), "ep")
	if err != nil {
		t.Fatalf("ByEpisode returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after reopen, got %d", len(records))
	}
}
