// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"castpress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Optional steps are off so tests opt in to exactly the plan they exercise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Steps = config.Steps{}
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDualTrack enables dual-track analysis with the given per-track models.
func WithDualTrack(precision, recall string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Steps.Analyze = true
		cfg.Analysis.DualTrack = true
		cfg.Analysis.PrecisionModel = precision
		cfg.Analysis.RecallModel = recall
	}
}

// WithAllSteps enables every optional step.
func WithAllSteps() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Steps.Diarize = true
		cfg.Steps.Preprocess = true
		cfg.Steps.Analyze = true
		cfg.Steps.Export = true
		cfg.Steps.Publish = true
	}
}
