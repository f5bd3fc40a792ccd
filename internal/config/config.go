package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// LibraryDir is the root under which per-episode working directories live.
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
}

// Steps controls which optional pipeline steps run. Fetch, transcode, and
// transcribe always run; the rest are opt-in.
type Steps struct {
	Diarize    bool `toml:"diarize"`
	Preprocess bool `toml:"preprocess"`
	Analyze    bool `toml:"analyze"`
	Export     bool `toml:"export"`
	Publish    bool `toml:"publish"`

	// Commands overrides the built-in adapter for a step with an external
	// command invoked under the stdin/stdout JSON contract. Keyed by step
	// name (fetch, transcode, transcribe, diarize, preprocess, analyze,
	// export, publish); value is the argv to run.
	Commands map[string][]string `toml:"commands"`
}

// Whisper contains speech-to-text and diarization settings.
type Whisper struct {
	Model            string `toml:"model"`
	DiarizationModel string `toml:"diarization_model"`
	CUDAEnabled      bool   `toml:"cuda_enabled"`
	VADMethod        string `toml:"vad_method"`
	HFToken          string `toml:"hf_token"`
}

// LLM contains shared language-model connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Analysis controls the language-model analysis step.
type Analysis struct {
	// DualTrack runs two independent analyses (precision + recall) and
	// reconciles them through the consensus engine.
	DualTrack bool `toml:"dual_track"`
	// PrecisionModel and RecallModel override the shared LLM model per track.
	PrecisionModel string `toml:"precision_model"`
	RecallModel    string `toml:"recall_model"`
	// Template selects the analysis prompt template.
	Template string `toml:"template"`
	// ChunkChars bounds how much transcript text goes into one completion
	// call; longer transcripts are analyzed map-reduce style.
	ChunkChars int `toml:"chunk_chars"`
	// MaxConcurrentChunks bounds in-flight chunk completions.
	MaxConcurrentChunks int `toml:"max_concurrent_chunks"`
}

// Publisher contains page-publishing settings.
type Publisher struct {
	BaseURL     string `toml:"base_url"`
	Token       string `toml:"token"`
	Destination string `toml:"destination"`
	TimeoutSec  int    `toml:"timeout_seconds"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains pipeline timing settings.
type Workflow struct {
	// StepTimeout is the per-step deadline in seconds; zero means no limit.
	StepTimeout int `toml:"step_timeout"`
	// FetchTimeout bounds the episode download in seconds.
	FetchTimeout int `toml:"fetch_timeout"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for castpress.
//
// Configuration sections by subsystem:
//   - Paths: library and log directories
//   - Steps: optional step toggles and external command overrides
//   - Whisper: speech-to-text and diarization models
//   - LLM: shared language-model connection settings
//   - Analysis: dual-track and chunking behavior
//   - Publisher: page-publishing destination
//   - Notifications: ntfy push notification settings
//   - Workflow: step deadlines
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Steps         Steps         `toml:"steps"`
	Whisper       Whisper       `toml:"whisper"`
	LLM           LLM           `toml:"llm"`
	Analysis      Analysis      `toml:"analysis"`
	Publisher     Publisher     `toml:"publisher"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/castpress/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("castpress.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
