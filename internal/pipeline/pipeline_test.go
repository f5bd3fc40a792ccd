package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/config"
	"castpress/internal/consensus"
	"castpress/internal/episode"
	"castpress/internal/lineage"
	"castpress/internal/logging"
	"castpress/internal/services"
	"castpress/internal/steps"
	"castpress/internal/testsupport"
	"castpress/internal/transcript"
)

func jsonRunner(t *testing.T, calls *atomic.Int64, v any) command.Runner {
	t.Helper()
	payload := testsupport.MustJSON(t, v)
	return command.RunnerFunc(func(context.Context, command.Request) (json.RawMessage, error) {
		if calls != nil {
			calls.Add(1)
		}
		return payload, nil
	})
}

func baseTranscript(model string) transcript.Document {
	return transcript.Document{
		Variant:  transcript.VariantBase,
		Model:    model,
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 4, Speaker: "SPEAKER_00", Text: "Welcome to the show."},
			{Start: 4, End: 9, Speaker: "SPEAKER_01", Text: "Glad to be here."},
		},
	}
}

// coreOverrides stubs the steps that would otherwise shell out to ffmpeg and
// whisperx.
func coreOverrides(t *testing.T, cfg *config.Config, fetchCalls *atomic.Int64) []Option {
	t.Helper()
	meta := steps.Meta{Episode: testsupport.Episode(t), SourceFile: "source.mp3", SizeBytes: 512}
	audio := steps.AudioMeta{File: "audio.wav"}
	return []Option{
		WithRunnerOverride(steps.StepFetch, jsonRunner(t, fetchCalls, meta)),
		WithRunnerOverride(steps.StepTranscode, jsonRunner(t, nil, audio)),
		WithRunnerOverride(steps.StepTranscribe, jsonRunner(t, nil, baseTranscript(cfg.Whisper.Model))),
	}
}

func TestRunExecutesAndResumes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ep := testsupport.Episode(t)
	var fetchCalls atomic.Int64
	orch := New(cfg, logging.NewNop(), coreOverrides(t, cfg, &fetchCalls)...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	if result.Executed() != 3 {
		t.Fatalf("executed = %d, want 3", result.Executed())
	}
	for _, name := range []string{
		"episode-meta.json",
		"audio-meta.json",
		"transcript-base.large-v3.json",
	} {
		if _, err := os.Stat(filepath.Join(result.Workdir, name)); err != nil {
			t.Fatalf("artifact %s: %v", name, err)
		}
	}

	// A second run finds every artifact in place and skips everything.
	result, err = orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.Skipped() != 3 || result.Executed() != 0 {
		t.Fatalf("resume: executed=%d skipped=%d", result.Executed(), result.Skipped())
	}
	if got := fetchCalls.Load(); got != 1 {
		t.Fatalf("fetch ran %d times, want 1", got)
	}

	// Force re-runs the named step even though its artifact exists.
	result, err = orch.Run(context.Background(), ep, RunOptions{Force: map[string]bool{steps.StepFetch: true}})
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if got := fetchCalls.Load(); got != 2 {
		t.Fatalf("fetch ran %d times after force, want 2", got)
	}
	if result.Executed() != 1 || result.Skipped() != 2 {
		t.Fatalf("force: executed=%d skipped=%d", result.Executed(), result.Skipped())
	}
}

func TestRunAbortsOnHardFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ep := testsupport.Episode(t)
	var fetchCalls atomic.Int64
	opts := coreOverrides(t, cfg, &fetchCalls)
	opts = append(opts, WithRunnerOverride(steps.StepTranscribe,
		command.RunnerFunc(func(context.Context, command.Request) (json.RawMessage, error) {
			return nil, services.Wrap(services.ErrStepFailed, steps.StepTranscribe, "transcribe", "whisperx crashed", nil)
		})))
	orch := New(cfg, logging.NewNop(), opts...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err == nil {
		t.Fatal("expected run error")
	}
	if !errors.Is(err, services.ErrStepFailed) {
		t.Fatalf("err = %v", err)
	}
	if result.Status != StatusAborted {
		t.Fatalf("status = %q", result.Status)
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Step != steps.StepTranscribe || last.Outcome != OutcomeFailed {
		t.Fatalf("last step = %+v", last)
	}
}

func TestRunSoftFailureDowngradesRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Steps.Export = true
	ep := testsupport.Episode(t)
	var fetchCalls atomic.Int64
	opts := coreOverrides(t, cfg, &fetchCalls)
	opts = append(opts, WithRunnerOverride(steps.StepExport,
		command.RunnerFunc(func(context.Context, command.Request) (json.RawMessage, error) {
			return nil, services.Wrap(services.ErrStepFailed, steps.StepExport, "render", "no analysis", nil)
		})))
	orch := New(cfg, logging.NewNop(), opts...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != StatusPartiallyCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], steps.StepExport) {
		t.Fatalf("warnings = %v", result.Warnings)
	}
}

func TestRunSoftStepConfigurationErrorAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Steps.Export = true
	ep := testsupport.Episode(t)
	var fetchCalls atomic.Int64
	opts := coreOverrides(t, cfg, &fetchCalls)
	opts = append(opts, WithRunnerOverride(steps.StepExport,
		command.RunnerFunc(func(context.Context, command.Request) (json.RawMessage, error) {
			return nil, services.Wrap(services.ErrConfiguration, steps.StepExport, "validate", "bad destination", nil)
		})))
	orch := New(cfg, logging.NewNop(), opts...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err == nil {
		t.Fatal("expected configuration error to abort")
	}
	if result.Status != StatusAborted {
		t.Fatalf("status = %q", result.Status)
	}
}

func TestInputForRejectsDiarizeOfPreprocessed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	name := "transcript-preprocessed." + cfg.Whisper.Model + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(`{"variant":"preprocessed"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	inv, err := artifact.Scan(dir)
	if err != nil {
		t.Fatal(err)
	}

	orch := New(cfg, logging.NewNop())
	_, err = orch.inputFor(steps.StepDiarize, artifact.NewStore(dir), inv)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunRejectsInvalidEpisode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := New(cfg, logging.NewNop())

	_, err := orch.Run(context.Background(), episode.Episode{}, RunOptions{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

// trackCompleter answers analysis chunk prompts with a per-track report and
// the comparison prompt with an agreement judgment.
type trackCompleter struct {
	model string
}

func (c trackCompleter) Model() string { return c.model }

func (c trackCompleter) CompleteJSON(_ context.Context, systemPrompt, _ string) (string, error) {
	if strings.Contains(systemPrompt, "compare two independent analyses") {
		return `{"score": 82, "unique_to_a": ["tone"], "unique_to_b": [], "contradictions": ["quote choice"]}`, nil
	}
	report := consensus.Report{
		Summary: "Summary from " + c.model,
		Themes:  []consensus.Item{{Text: "Theme from " + c.model}},
		Claims:  []consensus.Item{{Text: "Shared claim"}},
		Quotes:  []consensus.Item{{Text: "Glad to be here."}},
	}
	payload, err := json.Marshal(report)
	return string(payload), err
}

func TestRunDualTrackAnalyze(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDualTrack("model/precise", "model/broad"))
	ep := testsupport.Episode(t)

	var fetchCalls atomic.Int64
	opts := coreOverrides(t, cfg, &fetchCalls)
	opts = append(opts, WithCompleterFactory(func(model string) steps.Completer {
		return trackCompleter{model: model}
	}))
	orch := New(cfg, logging.NewNop(), opts...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	for _, name := range []string{
		"analysis.precision.model_precise.json",
		"analysis.recall.model_broad.json",
		"analysis-consensus.json",
		"analysis-agreement.json",
	} {
		if _, err := os.Stat(filepath.Join(result.Workdir, name)); err != nil {
			t.Fatalf("artifact %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(result.Workdir, "analysis-consensus.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc consensus.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Tracks) != 2 {
		t.Fatalf("tracks = %d", len(doc.Tracks))
	}
	if doc.Tracks[0].Track != consensus.TrackPrecision {
		t.Fatalf("first track = %q, want precision", doc.Tracks[0].Track)
	}
	// The shared claim appears once with both tracks as sources.
	if len(doc.Claims) != 1 || len(doc.Claims[0].Sources) != 2 {
		t.Fatalf("claims = %+v", doc.Claims)
	}

	raw, err = os.ReadFile(filepath.Join(result.Workdir, "analysis-agreement.json"))
	if err != nil {
		t.Fatal(err)
	}
	var agreement consensus.Agreement
	if err := json.Unmarshal(raw, &agreement); err != nil {
		t.Fatal(err)
	}
	if agreement.Score != 82 {
		t.Fatalf("score = %d", agreement.Score)
	}
	if agreement.TrackA != consensus.TrackPrecision || agreement.TrackB != consensus.TrackRecall {
		t.Fatalf("track labels = %q/%q", agreement.TrackA, agreement.TrackB)
	}
	if len(agreement.UniqueToA) != 1 || len(agreement.Contradictions) != 1 {
		t.Fatalf("agreement lists = %+v", agreement)
	}
}

func TestRunExternalAnalyzeOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Steps.Analyze = true
	ep := testsupport.Episode(t)

	report := consensus.Report{
		Model:   "custom-analyzer",
		Summary: "External summary",
		Themes:  []consensus.Item{{Text: "External theme"}},
	}
	var fetchCalls, analyzeCalls atomic.Int64
	opts := coreOverrides(t, cfg, &fetchCalls)
	opts = append(opts, WithRunnerOverride(steps.StepAnalyze, jsonRunner(t, &analyzeCalls, report)))
	orch := New(cfg, logging.NewNop(), opts...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(result.Workdir, "analysis.single.custom-analyzer.json")); err != nil {
		t.Fatalf("analysis artifact: %v", err)
	}

	// The report's track and model are not predictable from the config, so
	// a second run must still detect the artifact and skip.
	result, err = orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if analyzeCalls.Load() != 1 {
		t.Fatalf("analyze runs = %d, want 1", analyzeCalls.Load())
	}
	for _, step := range result.Steps {
		if step.Outcome != OutcomeSkipped {
			t.Fatalf("step %s outcome = %q", step.Step, step.Outcome)
		}
	}
}

func TestRunRecordsLineage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ep := testsupport.Episode(t)

	ledger, err := lineage.Open(filepath.Join(t.TempDir(), "lineage.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	var fetchCalls atomic.Int64
	opts := coreOverrides(t, cfg, &fetchCalls)
	opts = append(opts, WithLedger(ledger))
	orch := New(cfg, logging.NewNop(), opts...)

	result, err := orch.Run(context.Background(), ep, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	records, err := ledger.ByRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0].Parent != "" {
		t.Fatalf("fetch parent = %q", records[0].Parent)
	}
	if records[2].Parent != "audio-meta.json" {
		t.Fatalf("transcribe parent = %q", records[2].Parent)
	}
	for _, record := range records {
		if record.Episode != ep.Key() {
			t.Fatalf("record episode = %q", record.Episode)
		}
	}
}

func TestTimeoutForPrefersFetchDeadline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StepTimeout = 100
	cfg.Workflow.FetchTimeout = 7
	orch := New(cfg, logging.NewNop())

	if got := orch.timeoutFor(steps.StepFetch); got != 7*time.Second {
		t.Fatalf("fetch timeout = %v", got)
	}
	if got := orch.timeoutFor(steps.StepTranscribe); got != 100*time.Second {
		t.Fatalf("step timeout = %v", got)
	}
}
