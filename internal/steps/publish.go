package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/episode"
	"castpress/internal/services"
	"castpress/internal/services/publisher"
)

// PagePublisher is the publishing surface the publish step needs.
type PagePublisher interface {
	PublishPage(ctx context.Context, page publisher.PageRequest) (*publisher.Receipt, error)
	Configured() bool
}

// Publish posts the exported page to the publishing service and returns the
// receipt, which the orchestrator persists so reruns can tell the episode is
// already published.
type Publish struct {
	store  *artifact.Store
	ep     episode.Episode
	client PagePublisher
}

// NewPublish builds the publish adapter.
func NewPublish(store *artifact.Store, ep episode.Episode, client PagePublisher) *Publish {
	return &Publish{store: store, ep: ep, client: client}
}

var _ command.Runner = (*Publish)(nil)

// Run publishes the exported page.
func (p *Publish) Run(ctx context.Context, _ command.Request) (json.RawMessage, error) {
	if p.client == nil || !p.client.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, StepPublish, "validate",
			"publisher base_url and token are required", nil)
	}

	body, err := p.store.Load(artifact.Descriptor{Kind: artifact.KindExport})
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepPublish, "load page",
			"export.md missing: run the export step first", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, services.Wrap(services.ErrStepOutputInvalid, StepPublish, "load page",
			"exported page is empty", nil)
	}

	title := p.ep.Show
	if p.ep.Title != "" {
		title = fmt.Sprintf("%s: %s", p.ep.Show, p.ep.Title)
	}
	receipt, err := p.client.PublishPage(ctx, publisher.PageRequest{
		Title: title,
		Body:  string(body),
		Properties: map[string]string{
			"episode":      p.ep.Key(),
			"publish_date": p.ep.PublishDate.Format(episode.DateLayout),
		},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepPublish, "publish page", "", err)
	}

	encoded, err := json.Marshal(receipt)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepPublish, "encode receipt", "", err)
	}
	return encoded, nil
}
