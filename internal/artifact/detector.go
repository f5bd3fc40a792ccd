package artifact

import (
	"os"
	"sort"

	"castpress/internal/services"
	"castpress/internal/textutil"
)

// Inventory is the set of artifacts recovered from one directory scan,
// grouped by kind.
type Inventory struct {
	byKind map[Kind][]Descriptor
}

// Scan lists the working directory and reconstructs which steps have already
// completed. A missing or unreadable directory is a fatal detector error,
// never an empty inventory, so resumption logic can distinguish "nothing done
// yet" (an existing empty directory) from "wrong directory".
func Scan(dir string) (*Inventory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrDetectorIO, "detect", "scan workdir", dir, err)
	}

	inv := &Inventory{byKind: make(map[Kind][]Descriptor)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		desc := ParseFileName(entry.Name())
		if desc == nil {
			continue
		}
		inv.byKind[desc.Kind] = append(inv.byKind[desc.Kind], *desc)
	}
	for kind := range inv.byKind {
		descs := inv.byKind[kind]
		sort.Slice(descs, func(i, j int) bool {
			if descs[i].Model != descs[j].Model {
				return descs[i].Model < descs[j].Model
			}
			return descs[i].Track < descs[j].Track
		})
	}
	return inv, nil
}

// Has reports whether any artifact of the kind exists.
func (inv *Inventory) Has(kind Kind) bool {
	return inv != nil && len(inv.byKind[kind]) > 0
}

// HasModel reports whether an artifact of the kind exists for the model.
// File names carry sanitized model tokens, so the query side is sanitized
// the same way before comparing.
func (inv *Inventory) HasModel(kind Kind, model string) bool {
	if inv == nil {
		return false
	}
	token := textutil.SanitizeToken(model)
	for _, desc := range inv.byKind[kind] {
		if desc.Model == token {
			return true
		}
	}
	return false
}

// HasTrack reports whether an analysis artifact exists for the track and model.
func (inv *Inventory) HasTrack(track, model string) bool {
	if inv == nil {
		return false
	}
	trackToken := textutil.SanitizeToken(track)
	modelToken := textutil.SanitizeToken(model)
	for _, desc := range inv.byKind[KindAnalysis] {
		if desc.Track == trackToken && desc.Model == modelToken {
			return true
		}
	}
	return false
}

// Kinds returns the kinds present, in stable order.
func (inv *Inventory) Kinds() []Kind {
	if inv == nil {
		return nil
	}
	kinds := make([]Kind, 0, len(inv.byKind))
	for kind := range inv.byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// All returns every descriptor found, grouped and ordered by kind.
func (inv *Inventory) All() []Descriptor {
	if inv == nil {
		return nil
	}
	var all []Descriptor
	for _, kind := range inv.Kinds() {
		all = append(all, inv.byKind[kind]...)
	}
	return all
}

// ByKind returns the descriptors of one kind.
func (inv *Inventory) ByKind(kind Kind) []Descriptor {
	if inv == nil {
		return nil
	}
	return inv.byKind[kind]
}
