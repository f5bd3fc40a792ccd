// Package consensus reconciles independent analysis reports of the same
// episode into a single document.
//
// Reconciliation has two halves. Merge is purely mechanical: list items from
// every track are deduplicated by normalized text key and tagged with the
// tracks that produced them, so nothing either track found is lost. Agreement
// scoring is judgment and is delegated to a language model, which compares
// the reports and returns a 0-100 score with the points of agreement and
// disagreement it identified.
package consensus
