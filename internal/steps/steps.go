package steps

import (
	"context"
)

// Step names in canonical execution order.
const (
	StepFetch      = "fetch"
	StepTranscode  = "transcode"
	StepTranscribe = "transcribe"
	StepDiarize    = "diarize"
	StepPreprocess = "preprocess"
	StepAnalyze    = "analyze"
	StepExport     = "export"
	StepPublish    = "publish"
)

// Order lists every step in execution order.
var Order = []string{
	StepFetch,
	StepTranscode,
	StepTranscribe,
	StepDiarize,
	StepPreprocess,
	StepAnalyze,
	StepExport,
	StepPublish,
}

// Known reports whether name is a defined step.
func Known(name string) bool {
	for _, step := range Order {
		if step == name {
			return true
		}
	}
	return false
}

// Completer is the completion surface the language-model steps need.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}
