package pipeline

import (
	"time"

	"castpress/internal/episode"
)

// Status summarizes how a run ended.
type Status string

const (
	// StatusCompleted means every planned step executed or was skipped.
	StatusCompleted Status = "completed"
	// StatusPartiallyCompleted means all hard steps succeeded but at least
	// one soft step failed.
	StatusPartiallyCompleted Status = "partially-completed"
	// StatusAborted means a hard step failed and the run stopped there.
	StatusAborted Status = "aborted"
)

// Outcome is the per-step disposition within a run.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
	// OutcomeNotReached marks steps after the aborting failure.
	OutcomeNotReached Outcome = "not-reached"
)

// StepResult records one step's disposition.
type StepResult struct {
	Step     string        `json:"step"`
	Outcome  Outcome       `json:"outcome"`
	Soft     bool          `json:"soft,omitempty"`
	Duration time.Duration `json:"duration_ms,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// RunResult is the full account of one pipeline run.
type RunResult struct {
	RunID    string          `json:"run_id"`
	Episode  episode.Episode `json:"episode"`
	Workdir  string          `json:"workdir"`
	Status   Status          `json:"status"`
	Steps    []StepResult    `json:"steps"`
	Warnings []string        `json:"warnings,omitempty"`
	Duration time.Duration   `json:"duration_ms"`
}

// Executed counts steps that actually ran.
func (r *RunResult) Executed() int {
	return r.count(OutcomeExecuted)
}

// Skipped counts steps satisfied by existing artifacts.
func (r *RunResult) Skipped() int {
	return r.count(OutcomeSkipped)
}

func (r *RunResult) count(outcome Outcome) int {
	n := 0
	for _, step := range r.Steps {
		if step.Outcome == outcome {
			n++
		}
	}
	return n
}
