package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownStepNames = map[string]struct{}{
	"fetch":      {},
	"transcode":  {},
	"transcribe": {},
	"diarize":    {},
	"preprocess": {},
	"analyze":    {},
	"export":     {},
	"publish":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSteps(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validatePublisher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateSteps() error {
	for name, argv := range c.Steps.Commands {
		if _, ok := knownStepNames[strings.ToLower(strings.TrimSpace(name))]; !ok {
			return fmt.Errorf("steps.commands: unknown step %q", name)
		}
		if len(argv) == 0 {
			return fmt.Errorf("steps.commands.%s: command must not be empty", name)
		}
	}
	return nil
}

func (c *Config) validateWhisper() error {
	switch c.Whisper.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("whisper.vad_method must be silero or pyannote, got %q", c.Whisper.VADMethod)
	}
	if c.Whisper.VADMethod == "pyannote" && c.Whisper.HFToken == "" {
		return errors.New("whisper.hf_token is required when vad_method is pyannote")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if !c.Steps.Analyze {
		return nil
	}
	if _, overridden := c.Steps.Commands["analyze"]; overridden {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/castpress/config.toml"
		}
		return fmt.Errorf("llm.api_key is required when steps.analyze is enabled. Set CASTPRESS_LLM_API_KEY or edit %s (create with 'castpress config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePublisher() error {
	if !c.Steps.Publish {
		return nil
	}
	if _, overridden := c.Steps.Commands["publish"]; overridden {
		return nil
	}
	if c.Publisher.BaseURL == "" {
		return errors.New("publisher.base_url is required when steps.publish is enabled")
	}
	if c.Publisher.Token == "" {
		return errors.New("publisher.token is required when steps.publish is enabled. Set CASTPRESS_PUBLISH_TOKEN or edit the config file")
	}
	if c.Publisher.Destination == "" {
		return errors.New("publisher.destination is required when steps.publish is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
