package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"castpress/internal/command"
	"castpress/internal/consensus"
	"castpress/internal/transcript"
)

type scriptedCompleter struct {
	mu       sync.Mutex
	respond  func(userPrompt string) (string, error)
	prompts  []string
	inFlight int
	peak     int
}

func (s *scriptedCompleter) CompleteJSON(_ context.Context, _, userPrompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, userPrompt)
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()
	return s.respond(userPrompt)
}

func (s *scriptedCompleter) Model() string { return "demo-model" }

func transcriptInput(t *testing.T, lines ...string) json.RawMessage {
	t.Helper()
	segments := make([]transcript.Segment, 0, len(lines))
	for _, line := range lines {
		segments = append(segments, transcript.Segment{Text: line})
	}
	return marshalDoc(t, transcript.Document{
		Variant:  transcript.VariantPreprocessed,
		Model:    "large-v3",
		Language: "en",
		Segments: segments,
	})
}

func TestAnalyzeSingleChunk(t *testing.T) {
	client := &scriptedCompleter{respond: func(string) (string, error) {
		return `{"summary":"caching episode","themes":[{"text":"caching"}],"claims":[],"quotes":[]}`, nil
	}}
	adapter := NewAnalyze(client, AnalyzeOptions{Track: consensus.TrackPrecision})

	output, err := adapter.Run(context.Background(), command.Request{
		Step:  StepAnalyze,
		Input: transcriptInput(t, "we talked about caching"),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var report consensus.Report
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if report.Track != consensus.TrackPrecision || report.Model != "demo-model" {
		t.Fatalf("unexpected report identity %+v", report)
	}
	if report.Summary != "caching episode" || len(report.Themes) != 1 {
		t.Fatalf("unexpected report content %+v", report)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("expected single completion, got %d", len(client.prompts))
	}
}

func TestAnalyzeChunksPreserveOrderAndDedupe(t *testing.T) {
	// The first chunk is held until the second has completed, so collection
	// in completion order would put Section 2 first.
	firstRelease := make(chan struct{})
	client := &scriptedCompleter{respond: func(userPrompt string) (string, error) {
		switch {
		case strings.HasPrefix(userPrompt, "Section 1 of 2"):
			<-firstRelease
			return `{"summary":"first half","themes":[{"text":"caching"},{"text":"naming"}]}`, nil
		case strings.HasPrefix(userPrompt, "Section 2 of 2"):
			defer close(firstRelease)
			return `{"summary":"second half","themes":[{"text":"Caching"},{"text":"testing"}]}`, nil
		default:
			return `{"summary":"whole episode"}`, nil
		}
	}}
	adapter := NewAnalyze(client, AnalyzeOptions{ChunkChars: 30, MaxConcurrentChunks: 2})

	output, err := adapter.Run(context.Background(), command.Request{
		Step:  StepAnalyze,
		Input: transcriptInput(t, strings.Repeat("a", 25), strings.Repeat("b", 25)),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var report consensus.Report
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if report.Summary != "whole episode" {
		t.Fatalf("expected reduced summary, got %q", report.Summary)
	}
	want := []string{"caching", "naming", "testing"}
	if len(report.Themes) != len(want) {
		t.Fatalf("expected %d deduplicated themes, got %+v", len(want), report.Themes)
	}
	for i, theme := range report.Themes {
		if theme.Text != want[i] {
			t.Fatalf("expected theme %q at %d, got %q", want[i], i, theme.Text)
		}
	}
}

func TestAnalyzeBoundsConcurrency(t *testing.T) {
	client := &scriptedCompleter{respond: func(userPrompt string) (string, error) {
		return `{"summary":"s"}`, nil
	}}
	adapter := NewAnalyze(client, AnalyzeOptions{ChunkChars: 12, MaxConcurrentChunks: 1})

	lines := make([]string, 6)
	for i := range lines {
		lines[i] = strings.Repeat("x", 10)
	}
	if _, err := adapter.Run(context.Background(), command.Request{
		Step:  StepAnalyze,
		Input: transcriptInput(t, lines...),
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if client.peak > 1 {
		t.Fatalf("expected at most 1 in-flight completion, saw %d", client.peak)
	}
}

func TestAnalyzeChunkFailureStopsRun(t *testing.T) {
	client := &scriptedCompleter{respond: func(userPrompt string) (string, error) {
		if strings.HasPrefix(userPrompt, "Section 2") {
			return "", fmt.Errorf("provider exploded")
		}
		return `{"summary":"s"}`, nil
	}}
	adapter := NewAnalyze(client, AnalyzeOptions{ChunkChars: 30, MaxConcurrentChunks: 2})

	_, err := adapter.Run(context.Background(), command.Request{
		Step:  StepAnalyze,
		Input: transcriptInput(t, strings.Repeat("a", 25), strings.Repeat("b", 25)),
	})
	if err == nil {
		t.Fatal("expected analysis to fail")
	}
	if !strings.Contains(err.Error(), "provider exploded") {
		t.Fatalf("expected chunk failure surfaced, got %v", err)
	}
}

func TestAnalyzeUnknownTemplateIsConfigurationError(t *testing.T) {
	client := &scriptedCompleter{respond: func(string) (string, error) { return "{}", nil }}
	adapter := NewAnalyze(client, AnalyzeOptions{Template: "sonnet-form"})

	_, err := adapter.Run(context.Background(), command.Request{
		Step:  StepAnalyze,
		Input: transcriptInput(t, "text"),
	})
	if err == nil {
		t.Fatal("expected unknown template to fail")
	}
}

func TestChunkTextBreaksOnLines(t *testing.T) {
	text := "aaaa\nbbbb\ncccc"
	chunks := chunkText(text, 9)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "aaaa\nbbbb" || chunks[1] != "cccc" {
		t.Fatalf("unexpected chunks %q", chunks)
	}
}
