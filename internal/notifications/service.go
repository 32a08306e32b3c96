package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pixelmint/internal/config"
	"pixelmint/internal/publish"
)

const userAgent = "pixelmint/0.1.0"

// Service defines the notification surface used by the CLI host.
type Service interface {
	NotifyPublished(ctx context.Context, conf publish.Confirmation) error
	NotifyPublishFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is set.
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		published: cfg.Notifications.Published,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	published bool
	errors    bool
}

func (n *ntfyService) NotifyPublished(ctx context.Context, conf publish.Confirmation) error {
	if !n.published {
		return nil
	}
	message := fmt.Sprintf("🎨 Published %s\nRegistration: %s\nImage: %s", conf.Name, conf.ID, conf.Image)
	if conf.Attempts > 1 {
		message += fmt.Sprintf("\nMetadata took %d attempts", conf.Attempts)
	}
	return n.send(ctx, payload{
		title:    "pixelmint - Published",
		message:  message,
		tags:     []string{"pixelmint", "publish", "completed"},
		priority: "high",
		click:    conf.Image,
	})
}

func (n *ntfyService) NotifyPublishFailed(ctx context.Context, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Publication failed: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	tags := []string{"pixelmint", "error"}
	if perr, ok := publish.AsError(err); ok {
		tags = append(tags, string(perr.Kind))
		if perr.Hint != "" {
			builder.WriteString("\n")
			builder.WriteString(perr.Hint)
		}
	}
	return n.send(ctx, payload{
		title:    "pixelmint - Error",
		message:  builder.String(),
		tags:     tags,
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "pixelmint - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"pixelmint", "test"},
		priority: "low",
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
	if data.click != "" && strings.HasPrefix(data.click, "http") {
		req.Header.Set("Click", data.click)
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

func (noopService) NotifyPublished(context.Context, publish.Confirmation) error { return nil }
func (noopService) NotifyPublishFailed(context.Context, error) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
