package steps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/episode"
	"castpress/internal/services"
	"castpress/internal/testsupport"
)

func testEpisode(source string) episode.Episode {
	return episode.Episode{
		Show:        "Example Show",
		Title:       "Pilot",
		PublishDate: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		AudioSource: source,
	}
}

func TestFetchCopiesLocalSource(t *testing.T) {
	source := testsupport.SeedFile(t, t.TempDir(), "episode.mp3", []byte("audio bytes"))

	workdir := t.TempDir()
	store := artifact.NewStore(workdir)
	fixed := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	fetch := NewFetch(store, testEpisode(source), WithFetchClock(func() time.Time { return fixed }))

	output, err := fetch.Run(context.Background(), command.Request{Step: StepFetch})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var meta Meta
	if err := json.Unmarshal(output, &meta); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if meta.SourceFile != "source.mp3" {
		t.Fatalf("expected source.mp3, got %q", meta.SourceFile)
	}
	if meta.SizeBytes != int64(len("audio bytes")) {
		t.Fatalf("unexpected size %d", meta.SizeBytes)
	}
	if !meta.FetchedAt.Equal(fixed) {
		t.Fatalf("unexpected timestamp %v", meta.FetchedAt)
	}
	copied, err := os.ReadFile(filepath.Join(workdir, "source.mp3"))
	if err != nil {
		t.Fatalf("read copied audio: %v", err)
	}
	if string(copied) != "audio bytes" {
		t.Fatalf("unexpected copied content %q", copied)
	}
}

func TestFetchDownloadsRemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote audio"))
	}))
	defer server.Close()

	workdir := t.TempDir()
	store := artifact.NewStore(workdir)
	fetch := NewFetch(store, testEpisode(server.URL+"/feed/episode.ogg"))

	output, err := fetch.Run(context.Background(), command.Request{Step: StepFetch})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var meta Meta
	if err := json.Unmarshal(output, &meta); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if meta.SourceFile != "source.ogg" {
		t.Fatalf("expected source.ogg, got %q", meta.SourceFile)
	}
	downloaded, err := os.ReadFile(filepath.Join(workdir, "source.ogg"))
	if err != nil {
		t.Fatalf("read downloaded audio: %v", err)
	}
	if string(downloaded) != "remote audio" {
		t.Fatalf("unexpected content %q", downloaded)
	}
}

func TestFetchMissingLocalSourceIsConfigurationError(t *testing.T) {
	store := testsupport.NewStore(t)
	fetch := NewFetch(store, testEpisode(filepath.Join(t.TempDir(), "missing.mp3")))

	_, err := fetch.Run(context.Background(), command.Request{Step: StepFetch})
	if err == nil {
		t.Fatal("expected fetch to fail")
	}
	if !services.Fatal(err) {
		t.Fatalf("expected fatal configuration error, got %v", err)
	}
}

func TestFetchClientErrorIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := testsupport.NewStore(t)
	fetch := NewFetch(store, testEpisode(server.URL+"/gone.mp3"))

	_, err := fetch.Run(context.Background(), command.Request{Step: StepFetch})
	if err == nil {
		t.Fatal("expected fetch to fail")
	}
	if !services.Fatal(err) {
		t.Fatalf("expected configuration error for 404, got %v", err)
	}
}
