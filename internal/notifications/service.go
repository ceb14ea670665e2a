package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mangadrop/internal/config"
)

const userAgent = "mangadrop"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, series string, delivered, queued, failed int) error
	NotifyQueueFlushed(ctx context.Context, delivered, remaining int) error
	NotifyError(ctx context.Context, err error, during string) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: cfg.NotifyTimeout()},
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

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, series string, delivered, queued, failed int) error {
	series = strings.TrimSpace(series)
	parts := []string{fmt.Sprintf("%d delivered", delivered)}
	if queued > 0 {
		parts = append(parts, fmt.Sprintf("%d queued", queued))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	data := payload{
		title:   "mangadrop - Checkout Complete",
		message: fmt.Sprintf("%s: %s", series, strings.Join(parts, ", ")),
		tags:    []string{"mangadrop", "checkout", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueFlushed(ctx context.Context, delivered, remaining int) error {
	if delivered == 0 {
		return nil
	}
	message := fmt.Sprintf("Delivered %d queued ebook(s) to the Kindle", delivered)
	if remaining > 0 {
		message += fmt.Sprintf("; %d still waiting", remaining)
	}
	return n.send(ctx, payload{
		title:   "mangadrop - Queue Delivered",
		message: message,
		tags:    []string{"mangadrop", "queue", "delivered"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, during string) error {
	if err == nil {
		return nil
	}
	during = strings.TrimSpace(during)
	if during == "" {
		during = "mangadrop"
	}
	return n.send(ctx, payload{
		title:    "mangadrop - Error",
		message:  fmt.Sprintf("%s failed: %v", during, err),
		tags:     []string{"mangadrop", "error"},
		priority: "high",
	})
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

func (noopService) NotifyBatchCompleted(context.Context, string, int, int, int) error { return nil }
func (noopService) NotifyQueueFlushed(context.Context, int, int) error               { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
