package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"castpress/internal/services"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "castpress.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("pipeline started", String(FieldStep, "fetch"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "pipeline started") {
		t.Fatalf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"step":"fetch"`) {
		t.Fatalf("log file missing step attr: %s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithEpisode(context.Background(), "the-show-2026-08-01")
	ctx = services.WithStep(ctx, "analyze")
	ctx = services.WithTrack(ctx, "precision")

	fields := ContextFields(ctx)
	keys := make(map[string]bool, len(fields))
	for _, f := range fields {
		keys[f.Key] = true
	}
	for _, want := range []string{FieldEpisode, FieldStep, FieldTrack} {
		if !keys[want] {
			t.Fatalf("missing context field %q in %v", want, keys)
		}
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("should not panic")
}
