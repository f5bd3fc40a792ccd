package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"castpress/internal/command"
	"castpress/internal/consensus"
	"castpress/internal/services"
	"castpress/internal/services/llm"
	"castpress/internal/textutil"
	"castpress/internal/transcript"
)

const (
	defaultChunkChars     = 24000
	defaultChunkWorkers   = 4
	analysisSchemaClause  = `Respond with JSON only, using this schema: {"summary": "...", "themes": [{"text": "...", "note": "..."}], "claims": [{"text": "...", "note": "..."}], "quotes": [{"text": "...", "note": "..."}]}. Quotes must be verbatim from the transcript. Notes are optional context.`
	analysisReduceClause  = `You are given partial analyses of consecutive sections of one podcast episode. Produce a single coherent summary of the whole episode from the section summaries. Respond with JSON only: {"summary": "..."}.`
	analysisDefaultIntent = `Analyze the podcast transcript below. Identify the themes discussed, the factual claims made, and the most quotable lines.`
)

// trackIntents flavor the analysis prompt per track. Precision trades
// coverage for confidence; recall does the opposite. The consensus merge
// reconciles the two.
var trackIntents = map[string]string{
	consensus.TrackPrecision: `Report only findings directly and unambiguously supported by the transcript. Omit anything speculative.`,
	consensus.TrackRecall:    `Be exhaustive. Report every theme, claim, and quote you can find, including minor ones.`,
	consensus.TrackSingle:    ``,
}

// analysisTemplates maps the configurable template name to the prompt intent.
var analysisTemplates = map[string]string{
	"":              analysisDefaultIntent,
	"default":       analysisDefaultIntent,
	"episode-brief": analysisDefaultIntent,
	"interview":     `Analyze the interview transcript below. Identify the guest's main positions, the factual claims made, and the most quotable exchanges.`,
}

// AnalyzeOptions configures one analysis track.
type AnalyzeOptions struct {
	Track               string
	Template            string
	ChunkChars          int
	MaxConcurrentChunks int
}

// Analyze runs the language-model analysis over a transcript. Long
// transcripts are analyzed map-reduce style: chunks are completed
// concurrently, findings are concatenated in transcript order, and a final
// completion condenses the section summaries.
type Analyze struct {
	client Completer
	opts   AnalyzeOptions
}

// NewAnalyze builds the analyze adapter for one track.
func NewAnalyze(client Completer, opts AnalyzeOptions) *Analyze {
	if opts.Track == "" {
		opts.Track = consensus.TrackSingle
	}
	if opts.ChunkChars <= 0 {
		opts.ChunkChars = defaultChunkChars
	}
	if opts.MaxConcurrentChunks <= 0 {
		opts.MaxConcurrentChunks = defaultChunkWorkers
	}
	return &Analyze{client: client, opts: opts}
}

var _ command.Runner = (*Analyze)(nil)

// Run analyzes the input transcript and returns the track's report.
func (a *Analyze) Run(ctx context.Context, req command.Request) (json.RawMessage, error) {
	if a.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, StepAnalyze, "validate", "no completion client configured", nil)
	}
	intent, ok := analysisTemplates[a.opts.Template]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, StepAnalyze, "validate",
			fmt.Sprintf("unknown analysis template %q", a.opts.Template), nil)
	}
	if flavor := trackIntents[a.opts.Track]; flavor != "" {
		intent = intent + " " + flavor
	}

	if len(req.Input) == 0 {
		return nil, services.Wrap(services.ErrStepFailed, StepAnalyze, "decode input", "input transcript required", nil)
	}
	var doc transcript.Document
	if err := json.Unmarshal(req.Input, &doc); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepAnalyze, "decode input", "", err)
	}
	text := doc.SpeakerText()
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrStepOutputInvalid, StepAnalyze, "validate input",
			"input transcript has no text", nil)
	}

	chunks := chunkText(text, a.opts.ChunkChars)
	partials, err := a.analyzeChunks(ctx, intent, chunks)
	if err != nil {
		return nil, err
	}

	report, err := a.reduce(ctx, partials)
	if err != nil {
		return nil, err
	}
	report.Track = a.opts.Track
	report.Model = a.client.Model()
	report.Language = doc.Language

	encoded, err := json.Marshal(report)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepAnalyze, "encode report", "", err)
	}
	return encoded, nil
}

// analyzeChunks completes every chunk with bounded concurrency, preserving
// transcript order in the results. The first failure cancels the rest.
func (a *Analyze) analyzeChunks(ctx context.Context, intent string, chunks []string) ([]consensus.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]consensus.Report, len(chunks))
	errs := make([]error, len(chunks))
	sem := make(chan struct{}, a.opts.MaxConcurrentChunks)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(idx int, section string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				errs[idx] = runCtx.Err()
				return
			}
			report, err := a.analyzeOne(runCtx, intent, section, idx, len(chunks))
			if err != nil {
				errs[idx] = err
				cancel()
				return
			}
			results[idx] = report
		}(i, chunk)
	}
	wg.Wait()

	for _, err := range errs {
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}
		return nil, err
	}
	// A bare cancellation with no step error means the parent context ended.
	for _, err := range errs {
		if err != nil {
			return nil, services.Wrap(services.ErrStepFailed, StepAnalyze, "analyze chunk", "", err)
		}
	}
	return results, nil
}

func (a *Analyze) analyzeOne(ctx context.Context, intent, section string, idx, total int) (consensus.Report, error) {
	var empty consensus.Report
	prompt := intent + " " + analysisSchemaClause
	user := section
	if total > 1 {
		user = fmt.Sprintf("Section %d of %d:\n\n%s", idx+1, total, section)
	}
	content, err := a.client.CompleteJSON(ctx, prompt, user)
	if err != nil {
		return empty, services.Wrap(services.ErrStepFailed, StepAnalyze, "complete", "", err)
	}
	var report consensus.Report
	if err := llm.DecodeLLMJSON(content, &report); err != nil {
		return empty, services.Wrap(services.ErrStepOutputInvalid, StepAnalyze, "decode report", "", err)
	}
	return report, nil
}

// reduce folds the per-chunk reports into one. Findings are concatenated in
// order and deduplicated; the summary of a multi-chunk analysis goes through
// one more completion over the section summaries.
func (a *Analyze) reduce(ctx context.Context, partials []consensus.Report) (consensus.Report, error) {
	if len(partials) == 1 {
		return partials[0], nil
	}

	var combined consensus.Report
	var summaries []string
	for i, partial := range partials {
		combined.Themes = appendUnique(combined.Themes, partial.Themes)
		combined.Claims = appendUnique(combined.Claims, partial.Claims)
		combined.Quotes = appendUnique(combined.Quotes, partial.Quotes)
		if summary := strings.TrimSpace(partial.Summary); summary != "" {
			summaries = append(summaries, fmt.Sprintf("Section %d: %s", i+1, summary))
		}
	}

	content, err := a.client.CompleteJSON(ctx, analysisReduceClause, strings.Join(summaries, "\n"))
	if err != nil {
		return combined, services.Wrap(services.ErrStepFailed, StepAnalyze, "reduce summaries", "", err)
	}
	var reduced struct {
		Summary string `json:"summary"`
	}
	if err := llm.DecodeLLMJSON(content, &reduced); err != nil {
		return combined, services.Wrap(services.ErrStepOutputInvalid, StepAnalyze, "decode summary", "", err)
	}
	combined.Summary = strings.TrimSpace(reduced.Summary)
	return combined, nil
}

func appendUnique(existing, add []consensus.Item) []consensus.Item {
	seen := map[string]struct{}{}
	for _, item := range existing {
		seen[textutil.NormalizeKey(item.Text)] = struct{}{}
	}
	for _, item := range add {
		key := textutil.NormalizeKey(item.Text)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, item)
	}
	return existing
}

// chunkText splits text into sections of at most limit characters, breaking
// on line boundaries. A single line longer than the limit becomes its own
// oversized chunk rather than being split mid-sentence.
func chunkText(text string, limit int) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	var current strings.Builder
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line)+1 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		chunks = []string{text}
	}
	return chunks
}
