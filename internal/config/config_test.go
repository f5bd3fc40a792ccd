package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func baseValid(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	cfg.Paths.LibraryDir = filepath.Join(t.TempDir(), "library")
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.LLM.APIKey = "test-key"
	return cfg
}

func TestDefaultValidates(t *testing.T) {
	cfg := baseValid(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
library_dir = "` + filepath.Join(dir, "lib") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[steps]
diarize = true
analyze = false

[whisper]
model = "large-v3-turbo"

[analysis]
dual_track = true
chunk_chars = 1000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to exist at %q", resolved)
	}
	if !cfg.Steps.Diarize {
		t.Fatal("steps.diarize should be true")
	}
	if cfg.Steps.Analyze {
		t.Fatal("steps.analyze should be false")
	}
	if cfg.Whisper.Model != "large-v3-turbo" {
		t.Fatalf("whisper.model = %q", cfg.Whisper.Model)
	}
	if !cfg.Analysis.DualTrack || cfg.Analysis.ChunkChars != 1000 {
		t.Fatalf("analysis settings not applied: %+v", cfg.Analysis)
	}
	// Defaults survive partial files.
	if cfg.Analysis.MaxConcurrentChunks != defaultMaxConcurrentChunks {
		t.Fatalf("max_concurrent_chunks default lost: %d", cfg.Analysis.MaxConcurrentChunks)
	}
}

func TestValidateRejectsUnknownStepCommand(t *testing.T) {
	cfg := baseValid(t)
	cfg.Steps.Commands = map[string][]string{"burn": {"burner"}}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown step") {
		t.Fatalf("expected unknown step error, got %v", err)
	}
}

func TestValidateRequiresLLMKeyForAnalyze(t *testing.T) {
	cfg := baseValid(t)
	cfg.LLM.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm.api_key error, got %v", err)
	}

	// An external analyze command lifts the requirement.
	cfg.Steps.Commands = map[string][]string{"analyze": {"my-analyzer"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("external analyze command should not require api key: %v", err)
	}
}

func TestValidateRequiresPublisherSettings(t *testing.T) {
	cfg := baseValid(t)
	cfg.Steps.Publish = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected publisher validation error")
	}
	cfg.Publisher.BaseURL = "https://api.example.com/v1"
	cfg.Publisher.Token = "secret"
	cfg.Publisher.Destination = "page-123"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("publisher config should validate: %v", err)
	}
}

func TestValidateRejectsPyannoteWithoutToken(t *testing.T) {
	cfg := baseValid(t)
	cfg.Whisper.VADMethod = "pyannote"
	cfg.Whisper.HFToken = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected hf_token error")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
