package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeLLM()
	c.normalizeAnalysis()
	c.normalizePublisher()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.DiarizationModel = strings.TrimSpace(c.Whisper.DiarizationModel)
	if c.Whisper.DiarizationModel == "" {
		c.Whisper.DiarizationModel = defaultDiarizationModel
	}
	c.Whisper.VADMethod = strings.TrimSpace(c.Whisper.VADMethod)
	if c.Whisper.VADMethod == "" {
		c.Whisper.VADMethod = defaultVADMethod
	}
	if c.Whisper.HFToken == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Whisper.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("CASTPRESS_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Template = strings.TrimSpace(c.Analysis.Template)
	if c.Analysis.Template == "" {
		c.Analysis.Template = defaultAnalysisTemplate
	}
	if c.Analysis.ChunkChars <= 0 {
		c.Analysis.ChunkChars = defaultAnalysisChunkChars
	}
	if c.Analysis.MaxConcurrentChunks <= 0 {
		c.Analysis.MaxConcurrentChunks = defaultMaxConcurrentChunks
	}
	c.Analysis.PrecisionModel = strings.TrimSpace(c.Analysis.PrecisionModel)
	if c.Analysis.PrecisionModel == "" {
		c.Analysis.PrecisionModel = c.LLM.Model
	}
	c.Analysis.RecallModel = strings.TrimSpace(c.Analysis.RecallModel)
	if c.Analysis.RecallModel == "" {
		c.Analysis.RecallModel = c.LLM.Model
	}
}

func (c *Config) normalizePublisher() {
	if c.Publisher.Token == "" {
		if value, ok := os.LookupEnv("CASTPRESS_PUBLISH_TOKEN"); ok {
			c.Publisher.Token = strings.TrimSpace(value)
		}
	}
	c.Publisher.BaseURL = strings.TrimSpace(c.Publisher.BaseURL)
	c.Publisher.Destination = strings.TrimSpace(c.Publisher.Destination)
	if c.Publisher.TimeoutSec <= 0 {
		c.Publisher.TimeoutSec = defaultPublisherTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.StepTimeout < 0 {
		c.Workflow.StepTimeout = 0
	}
	if c.Workflow.FetchTimeout <= 0 {
		c.Workflow.FetchTimeout = defaultFetchTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
