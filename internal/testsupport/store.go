package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"castpress/internal/artifact"
	"castpress/internal/episode"
)

// Episode returns a fixed episode identity for tests.
func Episode(t testing.TB) episode.Episode {
	t.Helper()

	date, err := episode.ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return episode.Episode{
		Show:        "Example Show",
		Title:       "Pilot",
		PublishDate: date,
		AudioSource: "/tmp/pilot.mp3",
	}
}

// NewStore creates an artifact store over a fresh temp directory.
func NewStore(t testing.TB) *artifact.Store {
	t.Helper()
	return artifact.NewStore(t.TempDir())
}

// SeedArtifact writes v as a JSON artifact into the store.
func SeedArtifact(t testing.TB, store *artifact.Store, desc artifact.Descriptor, v any) string {
	t.Helper()

	path, err := store.SaveJSON(desc, v)
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
	return path
}

// SeedFile writes raw bytes into the directory under the given name.
func SeedFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MustJSON marshals v or fails the test.
func MustJSON(t testing.TB, v any) json.RawMessage {
	t.Helper()

	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}
