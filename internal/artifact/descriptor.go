package artifact

import (
	"fmt"
	"strings"

	"castpress/internal/textutil"
)

// Kind identifies the logical type of an artifact file.
type Kind string

const (
	KindEpisodeMeta  Kind = "episode-meta"
	KindAudioMeta    Kind = "audio-meta"
	KindBase         Kind = "transcript-base"
	KindDiarized     Kind = "transcript-diarized"
	KindPreprocessed Kind = "transcript-preprocessed"
	KindAnalysis     Kind = "analysis"
	KindConsensus    Kind = "analysis-consensus"
	KindAgreement    Kind = "analysis-agreement"
	KindExport       Kind = "export"
	KindReceipt      Kind = "publish-receipt"
)

// modeledKinds carry a producing model identifier in their file name.
var modeledKinds = map[Kind]struct{}{
	KindBase:         {},
	KindDiarized:     {},
	KindPreprocessed: {},
	KindAnalysis:     {},
}

// Known reports whether kind is one of the defined artifact kinds.
func (k Kind) Known() bool {
	switch k {
	case KindEpisodeMeta, KindAudioMeta, KindBase, KindDiarized, KindPreprocessed,
		KindAnalysis, KindConsensus, KindAgreement, KindExport, KindReceipt:
		return true
	}
	return false
}

// Modeled reports whether artifacts of this kind are qualified by a model id.
func (k Kind) Modeled() bool {
	_, ok := modeledKinds[k]
	return ok
}

// Descriptor is the parsed identity of one artifact file: its kind, the
// model or engine that produced it, and, for analyses, the track.
type Descriptor struct {
	Kind  Kind
	Model string
	Track string
}

// FileName renders the canonical file name for the descriptor.
func (d Descriptor) FileName() (string, error) {
	if !d.Kind.Known() {
		return "", fmt.Errorf("artifact: unknown kind %q", d.Kind)
	}
	ext := ".json"
	if d.Kind == KindExport {
		ext = ".md"
	}
	switch {
	case d.Kind == KindAnalysis:
		track := textutil.SanitizeToken(d.Track)
		if d.Track == "" {
			return "", fmt.Errorf("artifact: analysis descriptor requires a track")
		}
		if d.Model == "" {
			return "", fmt.Errorf("artifact: analysis descriptor requires a model")
		}
		return fmt.Sprintf("%s.%s.%s%s", d.Kind, track, textutil.SanitizeToken(d.Model), ext), nil
	case d.Kind.Modeled():
		if d.Model == "" {
			return "", fmt.Errorf("artifact: %s descriptor requires a model", d.Kind)
		}
		return fmt.Sprintf("%s.%s%s", d.Kind, textutil.SanitizeToken(d.Model), ext), nil
	default:
		return string(d.Kind) + ext, nil
	}
}

// ParseFileName recovers a descriptor from a file name. It returns nil for
// names that do not match the convention; callers treat those files as
// foreign and skip them.
func ParseFileName(name string) *Descriptor {
	name = strings.TrimSpace(name)
	ext := ""
	if idx := strings.LastIndex(name, "."); idx > 0 {
		ext = name[idx:]
	}
	switch ext {
	case ".json", ".md":
	default:
		return nil
	}
	stem := strings.TrimSuffix(name, ext)
	parts := strings.Split(stem, ".")

	kind := Kind(parts[0])
	if !kind.Known() {
		return nil
	}
	if kind == KindExport && ext != ".md" {
		return nil
	}
	if kind != KindExport && ext != ".json" {
		return nil
	}

	switch {
	case kind == KindAnalysis:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return nil
		}
		return &Descriptor{Kind: kind, Track: parts[1], Model: parts[2]}
	case kind.Modeled():
		if len(parts) != 2 || parts[1] == "" {
			return nil
		}
		return &Descriptor{Kind: kind, Model: parts[1]}
	default:
		if len(parts) != 1 {
			return nil
		}
		return &Descriptor{Kind: kind}
	}
}
