package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"castpress/internal/services"
	"castpress/internal/services/llm"
)

// agreementPrompt instructs the comparison model. The schema is deliberately
// rigid so DecodeLLMJSON can recover from minor formatting drift but the
// score itself is never inferred locally.
const agreementPrompt = `You compare two independent analyses of the same podcast episode.
Respond with JSON only, using this schema:
{"score": <integer 0-100>, "unique_to_a": ["..."], "unique_to_b": ["..."], "contradictions": ["..."]}
The score reflects how much the analyses agree on substance: 100 means they
describe the same episode the same way, 0 means they contradict each other
throughout. unique_to_a lists substantive points only Analysis A makes,
unique_to_b lists points only Analysis B makes, and contradictions lists
points on which the analyses directly conflict, each as a short sentence.
Do not include any other keys.`

// Agreement is the model's judgment of how well two analysis tracks concur.
// TrackA and TrackB record which report each unique-item list refers to.
type Agreement struct {
	Score          int      `json:"score"`
	TrackA         string   `json:"track_a"`
	TrackB         string   `json:"track_b"`
	UniqueToA      []string `json:"unique_to_a"`
	UniqueToB      []string `json:"unique_to_b"`
	Contradictions []string `json:"contradictions"`
	Model          string   `json:"model"`
}

// CompletionClient is the completion surface the scorer needs.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// Scorer delegates agreement judgment to a language model.
type Scorer struct {
	client CompletionClient
}

// NewScorer builds a scorer around the completion client.
func NewScorer(client CompletionClient) *Scorer {
	return &Scorer{client: client}
}

// Score compares two reports and returns the model's agreement judgment.
// A syntactically valid response with a score outside 0-100 is treated the
// same as malformed output.
func (s *Scorer) Score(ctx context.Context, a, b Report) (Agreement, error) {
	var empty Agreement
	if s == nil || s.client == nil {
		return empty, services.Wrap(services.ErrConfiguration, "consensus", "score agreement", "no completion client configured", nil)
	}
	if err := a.Validate(); err != nil {
		return empty, services.Wrap(services.ErrStepOutputInvalid, "consensus", "score agreement", "", err)
	}
	if err := b.Validate(); err != nil {
		return empty, services.Wrap(services.ErrStepOutputInvalid, "consensus", "score agreement", "", err)
	}

	content, err := s.client.CompleteJSON(ctx, agreementPrompt, renderComparison(a, b))
	if err != nil {
		return empty, services.Wrap(services.ErrStepFailed, "consensus", "score agreement", "", err)
	}

	var parsed struct {
		Score          *int     `json:"score"`
		UniqueToA      []string `json:"unique_to_a"`
		UniqueToB      []string `json:"unique_to_b"`
		Contradictions []string `json:"contradictions"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, services.Wrap(services.ErrStepOutputInvalid, "consensus", "score agreement", "", err)
	}
	if parsed.Score == nil {
		return empty, services.Wrap(services.ErrStepOutputInvalid, "consensus", "score agreement", "response missing score", nil)
	}
	if *parsed.Score < 0 || *parsed.Score > 100 {
		return empty, services.Wrap(services.ErrStepOutputInvalid, "consensus", "score agreement",
			fmt.Sprintf("score %d out of range", *parsed.Score), nil)
	}

	result := Agreement{
		Score:          *parsed.Score,
		TrackA:         reportLabel(a),
		TrackB:         reportLabel(b),
		UniqueToA:      parsed.UniqueToA,
		UniqueToB:      parsed.UniqueToB,
		Contradictions: parsed.Contradictions,
		Model:          s.client.Model(),
	}
	if result.UniqueToA == nil {
		result.UniqueToA = []string{}
	}
	if result.UniqueToB == nil {
		result.UniqueToB = []string{}
	}
	if result.Contradictions == nil {
		result.Contradictions = []string{}
	}
	return result, nil
}

func renderComparison(a, b Report) string {
	var builder strings.Builder
	builder.WriteString("Analysis A (")
	builder.WriteString(reportLabel(a))
	builder.WriteString("):\n")
	builder.WriteString(renderReport(a))
	builder.WriteString("\n\nAnalysis B (")
	builder.WriteString(reportLabel(b))
	builder.WriteString("):\n")
	builder.WriteString(renderReport(b))
	return builder.String()
}

func reportLabel(r Report) string {
	if r.Track != "" {
		return r.Track
	}
	return r.Model
}

func renderReport(r Report) string {
	// JSON keeps the comparison payload unambiguous for the model; fields the
	// comparison should not weigh are dropped first.
	trimmed := Report{
		Summary: r.Summary,
		Themes:  r.Themes,
		Claims:  r.Claims,
		Quotes:  r.Quotes,
		Model:   r.Model,
	}
	encoded, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return r.Summary
	}
	return string(encoded)
}
