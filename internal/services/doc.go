// Package services defines shared utilities consumed by the pipeline steps
// and external collaborator integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode keys, step names, track names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline error taxonomy (configuration vs step vs detector).
//
// Use these helpers when wiring new step logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
