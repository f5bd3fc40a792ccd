// Package textutil provides small text helpers shared across the pipeline:
// filesystem-safe name sanitization for artifact files and Unicode-aware
// normalization used when comparing analysis entries across tracks.
package textutil
