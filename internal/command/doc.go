// Package command defines the universal step invocation contract and the
// executor that drives one step to a typed result.
//
// Every step, built-in or external, is invoked the same way: at most one
// JSON document in, a list of string options, exactly one JSON document out.
// External steps are subprocesses (stdin/stdout JSON, stderr diagnostics,
// exit code); built-in adapters implement the same Runner interface
// in-process. The executor owns timeout handling, error translation into the
// step taxonomy, and optional atomic persistence of the raw output to an
// artifact path. It never retries; retry policy belongs to the orchestrator.
package command
