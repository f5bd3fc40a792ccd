// Package steps provides the built-in adapters for each pipeline step.
//
// Every adapter implements the same Runner contract that external step
// commands are held to: JSON in, JSON out, failures translated into the
// shared error taxonomy. The orchestrator therefore treats a built-in
// adapter and a configured external command identically; swapping one for
// the other is a configuration change, not a code change.
package steps
