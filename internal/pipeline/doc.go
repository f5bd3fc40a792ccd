// Package pipeline orchestrates a full episode processing run.
//
// The orchestrator holds no run state of its own: before each run it scans
// the episode working directory, and any step whose output artifacts are
// already present is skipped. Interrupt a run at any point and rerun it, and
// processing resumes from the first missing artifact. Force flags re-execute
// individual steps; downstream artifacts derived from a forced step are
// regenerated because their inputs change.
//
// Steps come in two kinds. Hard steps (fetch through analyze) abort the run
// on failure. Soft steps (export, publish) only downgrade a completed run to
// partially-completed; their failures are recorded as warnings.
package pipeline
