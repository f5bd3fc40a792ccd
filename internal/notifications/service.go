package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"castpress/internal/config"
)

const userAgent = "Castpress-Go/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunStarted(ctx context.Context, episode string, steps int) error
	NotifyRunCompleted(ctx context.Context, episode string, executed, skipped int, duration time.Duration) error
	NotifyRunPartiallyCompleted(ctx context.Context, episode string, warnings int) error
	NotifyRunAborted(ctx context.Context, episode string, err error) error
	NotifyPublished(ctx context.Context, episode, url string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, episode string, steps int) error {
	data := payload{
		title:   "Castpress - Run Started",
		message: fmt.Sprintf("Processing %s (%d steps planned)", strings.TrimSpace(episode), steps),
		tags:    []string{"castpress", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, episode string, executed, skipped int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title: "Castpress - Run Complete",
		message: fmt.Sprintf("%s complete: %d steps executed, %d skipped in %s",
			strings.TrimSpace(episode), executed, skipped, duration),
		tags:     []string{"castpress", "run", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunPartiallyCompleted(ctx context.Context, episode string, warnings int) error {
	data := payload{
		title: "Castpress - Run Complete (with warnings)",
		message: fmt.Sprintf("%s finished, but %d optional step(s) failed",
			strings.TrimSpace(episode), warnings),
		tags: []string{"castpress", "run", "warning"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunAborted(ctx context.Context, episode string, err error) error {
	message := fmt.Sprintf("Run aborted for %s", strings.TrimSpace(episode))
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Castpress - Run Aborted",
		message:  message,
		tags:     []string{"castpress", "run", "aborted"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublished(ctx context.Context, episode, url string) error {
	message := fmt.Sprintf("Published: %s", strings.TrimSpace(episode))
	if url = strings.TrimSpace(url); url != "" {
		message = fmt.Sprintf("%s\n%s", message, url)
	}
	data := payload{
		title:   "Castpress - Published",
		message: message,
		tags:    []string{"castpress", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Castpress - Test",
		message:  "Notification system test",
		tags:     []string{"castpress", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRunPartiallyCompleted(context.Context, string, int) error { return nil }
func (noopService) NotifyRunAborted(context.Context, string, error) error          { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
