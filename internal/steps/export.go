package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/consensus"
	"castpress/internal/episode"
	"castpress/internal/services"
)

// Export renders the reconciled analysis as a markdown page. It is the one
// step whose primary artifact is not JSON, so it writes export.md itself and
// returns a small result document describing what it wrote.
type Export struct {
	store *artifact.Store
	ep    episode.Episode
}

// ExportResult is the export step's output document.
type ExportResult struct {
	File      string `json:"file"`
	SizeBytes int    `json:"size_bytes"`
}

// NewExport builds the export adapter.
func NewExport(store *artifact.Store, ep episode.Episode) *Export {
	return &Export{store: store, ep: ep}
}

var _ command.Runner = (*Export)(nil)

// Run renders the episode page from the consensus document, falling back to
// a lone analysis report when no consensus exists.
func (e *Export) Run(_ context.Context, _ command.Request) (json.RawMessage, error) {
	doc, err := e.loadAnalysis()
	if err != nil {
		return nil, err
	}

	var agreement *consensus.Agreement
	agreementDesc := artifact.Descriptor{Kind: artifact.KindAgreement}
	if ok, err := e.store.Exists(agreementDesc); err == nil && ok {
		var loaded consensus.Agreement
		if err := e.store.LoadJSON(agreementDesc, &loaded); err == nil {
			agreement = &loaded
		}
	}

	page := renderMarkdown(e.ep, doc, agreement)
	if _, err := e.store.Save(artifact.Descriptor{Kind: artifact.KindExport}, []byte(page)); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepExport, "write page", "", err)
	}

	encoded, err := json.Marshal(ExportResult{File: "export.md", SizeBytes: len(page)})
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepExport, "encode result", "", err)
	}
	return encoded, nil
}

func (e *Export) loadAnalysis() (consensus.Document, error) {
	var doc consensus.Document
	consensusDesc := artifact.Descriptor{Kind: artifact.KindConsensus}
	if ok, err := e.store.Exists(consensusDesc); err != nil {
		return doc, services.Wrap(services.ErrStepFailed, StepExport, "locate consensus", "", err)
	} else if ok {
		if err := e.store.LoadJSON(consensusDesc, &doc); err != nil {
			return doc, services.Wrap(services.ErrStepFailed, StepExport, "load consensus", "", err)
		}
		return doc, nil
	}

	// No consensus artifact: fall back to a single-track analysis.
	inv, err := artifact.Scan(e.store.Dir())
	if err != nil {
		return doc, err
	}
	analyses := inv.ByKind(artifact.KindAnalysis)
	if len(analyses) == 0 {
		return doc, services.Wrap(services.ErrConfiguration, StepExport, "locate analysis",
			"nothing to export: no consensus or analysis artifact present", nil)
	}
	var report consensus.Report
	if err := e.store.LoadJSON(analyses[0], &report); err != nil {
		return doc, services.Wrap(services.ErrStepFailed, StepExport, "load analysis", "", err)
	}
	merged, err := consensus.Merge(report)
	if err != nil {
		return doc, err
	}
	return merged, nil
}

func renderMarkdown(ep episode.Episode, doc consensus.Document, agreement *consensus.Agreement) string {
	var b strings.Builder

	title := ep.Show
	if ep.Title != "" {
		title = fmt.Sprintf("%s: %s", ep.Show, ep.Title)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Published %s\n\n", ep.PublishDate.Format(episode.DateLayout))

	if doc.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(doc.Summary)
		b.WriteString("\n\n")
	}

	multiTrack := len(doc.Tracks) > 1
	writeSection(&b, "Themes", doc.Themes, multiTrack)
	writeSection(&b, "Claims", doc.Claims, multiTrack)
	writeSection(&b, "Quotes", doc.Quotes, multiTrack)

	if agreement != nil {
		fmt.Fprintf(&b, "## Agreement\n\nScore: %d/100\n\n", agreement.Score)
		wrote := false
		for _, point := range agreement.Contradictions {
			fmt.Fprintf(&b, "- Contradiction: %s\n", point)
			wrote = true
		}
		for _, point := range agreement.UniqueToA {
			fmt.Fprintf(&b, "- Only %s: %s\n", agreement.TrackA, point)
			wrote = true
		}
		for _, point := range agreement.UniqueToB {
			fmt.Fprintf(&b, "- Only %s: %s\n", agreement.TrackB, point)
			wrote = true
		}
		if wrote {
			b.WriteString("\n")
		}
	}

	if multiTrack {
		b.WriteString("## Analysis tracks\n\n")
		for _, track := range doc.Tracks {
			fmt.Fprintf(&b, "- %s (%s)\n", track.Track, track.Model)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeSection(b *strings.Builder, heading string, items []consensus.MergedItem, multiTrack bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		line := item.Text
		if item.Note != "" {
			line = fmt.Sprintf("%s (%s)", line, item.Note)
		}
		if multiTrack && len(item.Sources) == 1 {
			line = fmt.Sprintf("%s [%s only]", line, item.Sources[0])
		}
		fmt.Fprintf(b, "- %s\n", line)
	}
	b.WriteString("\n")
}
