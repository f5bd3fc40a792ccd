package transcript

import (
	"fmt"

	"castpress/internal/artifact"
	"castpress/internal/services"
)

// Variant names a stage of transcript processing.
type Variant string

const (
	VariantBase         Variant = "base"
	VariantDiarized     Variant = "diarized"
	VariantPreprocessed Variant = "preprocessed"
)

// variantRank orders variants by how processed they are; higher wins when a
// step accepts multiple inputs.
var variantRank = map[Variant]int{
	VariantBase:         0,
	VariantDiarized:     1,
	VariantPreprocessed: 2,
}

// legalTransitions is the full transition table. Diarization folds alignment
// in as an internal precondition; preprocessed is terminal because its text
// no longer corresponds word-for-word to the audio.
var legalTransitions = map[Variant][]Variant{
	VariantDiarized:     {VariantBase},
	VariantPreprocessed: {VariantDiarized, VariantBase},
}

// Kind maps a variant to its artifact kind.
func (v Variant) Kind() artifact.Kind {
	switch v {
	case VariantBase:
		return artifact.KindBase
	case VariantDiarized:
		return artifact.KindDiarized
	case VariantPreprocessed:
		return artifact.KindPreprocessed
	}
	return ""
}

// Known reports whether v is a defined variant.
func (v Variant) Known() bool {
	_, ok := variantRank[v]
	return ok
}

// CanProduce reports whether target may be computed from the given source.
func CanProduce(target, source Variant) bool {
	for _, legal := range legalTransitions[target] {
		if legal == source {
			return true
		}
	}
	return false
}

// PickSource selects the most-processed acceptable source for target among
// the available variants. The rejection of a preprocessed-only directory is
// a configuration error raised before any subprocess runs.
func PickSource(target Variant, available []Variant) (Variant, error) {
	best := Variant("")
	bestRank := -1
	for _, candidate := range available {
		if !CanProduce(target, candidate) {
			continue
		}
		if rank := variantRank[candidate]; rank > bestRank {
			best = candidate
			bestRank = rank
		}
	}
	if best != "" {
		return best, nil
	}

	for _, candidate := range available {
		if candidate == VariantPreprocessed {
			return "", services.Wrap(services.ErrConfiguration, "plan", "pick transcript source",
				fmt.Sprintf("cannot produce %s from a preprocessed transcript: preprocessing is terminal (merged segments no longer align word-for-word with the audio)", target), nil)
		}
	}
	return "", services.Wrap(services.ErrConfiguration, "plan", "pick transcript source",
		fmt.Sprintf("no acceptable source transcript for %s (have %v)", target, available), nil)
}

// ModelSet names the engines a transcript chain is qualified by. Base and
// preprocessed transcripts carry the transcription model id; diarized
// transcripts carry the diarization model id (the filename prefix contract).
type ModelSet struct {
	Transcription string
	Diarization   string
}

// ModelFor returns the model id that qualifies artifacts of the variant.
func (m ModelSet) ModelFor(variant Variant) string {
	if variant == VariantDiarized {
		return m.Diarization
	}
	return m.Transcription
}

// MostProcessed returns the highest-ranked variant available for the model
// set, resolving the diarized-over-base tie-break. The second return is
// false when no transcript exists at all.
func MostProcessed(inv *artifact.Inventory, models ModelSet) (Variant, bool) {
	variants := Available(inv, models)
	if len(variants) == 0 {
		return "", false
	}
	return variants[len(variants)-1], true
}

// Available lists the variants present for the model set, least processed
// first.
func Available(inv *artifact.Inventory, models ModelSet) []Variant {
	var out []Variant
	for _, variant := range []Variant{VariantBase, VariantDiarized, VariantPreprocessed} {
		if inv.HasModel(variant.Kind(), models.ModelFor(variant)) {
			out = append(out, variant)
		}
	}
	return out
}
