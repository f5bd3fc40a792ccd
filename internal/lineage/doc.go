// Package lineage keeps an explicit derivation ledger for artifacts.
//
// The filename convention answers "does this artifact exist" cheaply; the
// ledger answers "where did it come from": which run produced it, from
// which parent artifact, under which step. Detection never consults the
// ledger, so a missing or stale database degrades history, not pipeline
// behavior.
package lineage
