package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPDoer describes the HTTP client used by the publishing service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the settings required to reach the publishing service.
type Config struct {
	BaseURL     string
	Token       string
	Destination string
	TimeoutSec  int
}

// PageRequest describes a single page to publish.
type PageRequest struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Destination string            `json:"destination"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// Receipt records the identity of a published page.
type Receipt struct {
	PageID      string    `json:"page_id"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Client posts pages to the configured publishing endpoint.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the timestamp source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a publishing client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Token:       strings.TrimSpace(cfg.Token),
			Destination: strings.TrimSpace(cfg.Destination),
			TimeoutSec:  cfg.TimeoutSec,
		},
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether the client has enough settings to publish.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.BaseURL != "" && c.cfg.Token != ""
}

// PublishPage creates a page at the configured destination and returns the
// service receipt. An empty PageRequest.Destination falls back to the
// configured default destination.
func (c *Client) PublishPage(ctx context.Context, page PageRequest) (*Receipt, error) {
	if !c.Configured() {
		return nil, errors.New("publish page: base url and token required")
	}
	page.Title = strings.TrimSpace(page.Title)
	if page.Title == "" {
		return nil, errors.New("publish page: title required")
	}
	if strings.TrimSpace(page.Body) == "" {
		return nil, errors.New("publish page: body required")
	}
	if strings.TrimSpace(page.Destination) == "" {
		page.Destination = c.cfg.Destination
	}
	if page.Destination == "" {
		return nil, errors.New("publish page: destination required")
	}

	encoded, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("publish page: encode body: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/pages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("publish page: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish page: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("publish page: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("publish page: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		PageID string `json:"page_id"`
		ID     string `json:"id"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("publish page: decode response: %w", err)
	}
	pageID := strings.TrimSpace(parsed.PageID)
	if pageID == "" {
		pageID = strings.TrimSpace(parsed.ID)
	}
	if pageID == "" {
		return nil, errors.New("publish page: response missing page id")
	}
	return &Receipt{
		PageID:      pageID,
		URL:         strings.TrimSpace(parsed.URL),
		PublishedAt: c.now().UTC(),
	}, nil
}
