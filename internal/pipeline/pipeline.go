package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/config"
	"castpress/internal/episode"
	"castpress/internal/lineage"
	"castpress/internal/logging"
	"castpress/internal/notifications"
	"castpress/internal/services"
	"castpress/internal/services/llm"
	"castpress/internal/services/publisher"
	"castpress/internal/steps"
)

// Orchestrator drives one episode through the configured step plan.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	ledger   *lineage.Store

	overrides    map[string]command.Runner
	completerFor func(model string) steps.Completer
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithLedger attaches a lineage ledger. Without one, runs simply record no
// history.
func WithLedger(ledger *lineage.Store) Option {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

// WithRunnerOverride replaces the runner for one step (useful for tests).
func WithRunnerOverride(step string, runner command.Runner) Option {
	return func(o *Orchestrator) {
		o.overrides[step] = runner
	}
}

// WithCompleterFactory overrides how per-model completion clients are built
// (useful for tests).
func WithCompleterFactory(factory func(model string) steps.Completer) Option {
	return func(o *Orchestrator) {
		if factory != nil {
			o.completerFor = factory
		}
	}
}

// New builds an orchestrator for the configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		notifier:  notifications.NewService(cfg),
		overrides: make(map[string]command.Runner),
	}
	o.completerFor = func(model string) steps.Completer {
		return llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, llm.WithModel(model))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunOptions adjusts a single run.
type RunOptions struct {
	// Force re-executes the named steps even when their artifacts exist.
	Force map[string]bool
}

// Run processes the episode through the configured plan. The returned result
// is always populated; the error is non-nil only when the run aborted, and
// mirrors result.Steps' failing entry.
func (o *Orchestrator) Run(ctx context.Context, ep episode.Episode, opts RunOptions) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	result := &RunResult{
		RunID:   runID,
		Episode: ep,
		Workdir: ep.Workdir(o.cfg.Paths.LibraryDir),
		Status:  StatusCompleted,
	}

	if err := ep.Validate(); err != nil {
		wrapped := services.Wrap(services.ErrConfiguration, "plan", "validate episode", "", err)
		result.Status = StatusAborted
		result.Duration = time.Since(start)
		return result, wrapped
	}
	if err := os.MkdirAll(result.Workdir, 0o755); err != nil {
		wrapped := services.Wrap(services.ErrDetectorIO, "plan", "ensure workdir", result.Workdir, err)
		result.Status = StatusAborted
		result.Duration = time.Since(start)
		return result, wrapped
	}

	ctx = services.WithEpisode(ctx, ep.Key())
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	store := artifact.NewStore(result.Workdir)
	executor := command.NewExecutor(store, o.logger)
	plan := PlanSteps(o.cfg)

	_ = o.notifier.NotifyRunStarted(ctx, ep.Key(), len(plan))
	logger.Info("run started",
		logging.String(logging.FieldEpisode, ep.Key()),
		logging.Int("planned_steps", len(plan)),
	)

	var abortErr error
	parent := ""
	for _, planned := range plan {
		if abortErr != nil {
			result.Steps = append(result.Steps, StepResult{Step: planned.Name, Outcome: OutcomeNotReached, Soft: planned.Soft})
			continue
		}

		inv, err := artifact.Scan(result.Workdir)
		if err != nil {
			abortErr = err
			result.Steps = append(result.Steps, StepResult{Step: planned.Name, Outcome: OutcomeFailed, Err: err, Error: err.Error()})
			continue
		}

		if !opts.Force[planned.Name] && o.satisfied(planned.Name, inv) {
			logger.Info("step skipped",
				logging.String(logging.FieldStep, planned.Name),
				logging.String(logging.FieldEventType, "artifact_present"),
			)
			result.Steps = append(result.Steps, StepResult{Step: planned.Name, Outcome: OutcomeSkipped, Soft: planned.Soft})
			parent = o.primaryArtifact(planned.Name, inv)
			continue
		}

		stepCtx := services.WithStep(ctx, planned.Name)
		stepStart := time.Now()
		produced, err := o.executeStep(stepCtx, planned.Name, store, ep, inv, executor, runID, parent)
		stepResult := StepResult{
			Step:     planned.Name,
			Soft:     planned.Soft,
			Duration: time.Since(stepStart),
		}
		if err != nil {
			stepResult.Outcome = OutcomeFailed
			stepResult.Err = err
			stepResult.Error = err.Error()
			result.Steps = append(result.Steps, stepResult)
			if planned.Soft && !services.Fatal(err) {
				logger.Warn("soft step failed",
					logging.String(logging.FieldStep, planned.Name),
					logging.Error(err),
				)
				result.Warnings = append(result.Warnings, planned.Name+": "+err.Error())
				continue
			}
			logger.Error("step failed",
				logging.String(logging.FieldStep, planned.Name),
				logging.Error(err),
			)
			abortErr = err
			continue
		}

		stepResult.Outcome = OutcomeExecuted
		result.Steps = append(result.Steps, stepResult)
		logger.Info("step executed",
			logging.String(logging.FieldStep, planned.Name),
			logging.Duration("elapsed", stepResult.Duration),
		)
		if produced != "" {
			parent = produced
		}
	}

	result.Duration = time.Since(start)
	switch {
	case abortErr != nil:
		result.Status = StatusAborted
		_ = o.notifier.NotifyRunAborted(ctx, ep.Key(), abortErr)
	case len(result.Warnings) > 0:
		result.Status = StatusPartiallyCompleted
		_ = o.notifier.NotifyRunPartiallyCompleted(ctx, ep.Key(), len(result.Warnings))
	default:
		result.Status = StatusCompleted
		_ = o.notifier.NotifyRunCompleted(ctx, ep.Key(), result.Executed(), result.Skipped(), result.Duration)
	}
	logger.Info("run finished",
		logging.String(logging.FieldEpisode, ep.Key()),
		logging.String(logging.FieldEventType, string(result.Status)),
		logging.Duration("elapsed", result.Duration),
	)
	if abortErr != nil {
		return result, abortErr
	}
	o.notifyPublished(ctx, ep, store, result)
	return result, nil
}

// notifyPublished sends the publish notification when this run produced a
// receipt.
// satisfied wraps Satisfied with runner-override awareness: an analyze
// override behaves like an external command and stores one report under its
// own track and model, so any analysis artifact marks the step done.
func (o *Orchestrator) satisfied(step string, inv *artifact.Inventory) bool {
	if step == steps.StepAnalyze {
		if _, ok := o.overrides[steps.StepAnalyze]; ok {
			return inv.Has(artifact.KindAnalysis)
		}
	}
	return Satisfied(step, inv, o.cfg)
}

func (o *Orchestrator) notifyPublished(ctx context.Context, ep episode.Episode, store *artifact.Store, result *RunResult) {
	for _, step := range result.Steps {
		if step.Step != steps.StepPublish || step.Outcome != OutcomeExecuted {
			continue
		}
		var receipt publisher.Receipt
		if err := store.LoadJSON(artifact.Descriptor{Kind: artifact.KindReceipt}, &receipt); err == nil {
			_ = o.notifier.NotifyPublished(ctx, ep.Key(), receipt.URL)
		}
	}
}

// executeStep runs one step to completion and returns the file name of its
// primary artifact.
func (o *Orchestrator) executeStep(
	ctx context.Context,
	name string,
	store *artifact.Store,
	ep episode.Episode,
	inv *artifact.Inventory,
	executor *command.Executor,
	runID, parent string,
) (string, error) {
	if name == steps.StepAnalyze {
		return o.runAnalyze(ctx, store, inv, executor, ep, runID)
	}

	runner, err := o.runnerFor(name, store, ep)
	if err != nil {
		return "", err
	}
	input, err := o.inputFor(name, store, inv)
	if err != nil {
		return "", err
	}
	persist := o.persistFor(name)

	if _, err := executor.Execute(ctx, command.Spec{
		Step:    name,
		Runner:  runner,
		Input:   input,
		Timeout: o.timeoutFor(name),
		Persist: persist,
	}); err != nil {
		return "", err
	}

	produced := ""
	if persist != nil {
		if fileName, nameErr := persist.FileName(); nameErr == nil {
			produced = fileName
		}
	} else if name == steps.StepExport {
		produced = "export.md"
	}
	if produced != "" {
		o.recordLineage(ctx, runID, ep.Key(), name, produced, parent)
	}
	return produced, nil
}

func (o *Orchestrator) timeoutFor(name string) time.Duration {
	seconds := o.cfg.Workflow.StepTimeout
	if name == steps.StepFetch && o.cfg.Workflow.FetchTimeout > 0 {
		seconds = o.cfg.Workflow.FetchTimeout
	}
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (o *Orchestrator) recordLineage(ctx context.Context, runID, episodeKey, step, path, parent string) {
	if o.ledger == nil {
		return
	}
	desc := artifact.ParseFileName(path)
	record := lineage.Record{
		RunID:     runID,
		Episode:   episodeKey,
		Step:      step,
		Operation: "produced",
		Path:      path,
		Parent:    parent,
	}
	if desc != nil {
		record.Kind = desc.Kind
		record.Model = desc.Model
		record.Track = desc.Track
	}
	if _, err := o.ledger.Append(ctx, record); err != nil {
		logging.WithContext(ctx, o.logger).Warn("lineage record failed",
			logging.String(logging.FieldStep, step),
			logging.Error(err),
		)
	}
}
