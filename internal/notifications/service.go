package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "clipforge/0.1.0"

// Service defines the notification surface exposed to the job executor.
type Service interface {
	NotifyJobCompleted(ctx context.Context, name, output, artifactURL string) error
	NotifyJobFailed(ctx context.Context, name, reason string) error
	NotifyJobsReclaimed(ctx context.Context, count int) error
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

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, name, output, artifactURL string) error {
	message := fmt.Sprintf("✅ Rendered: %s", strings.TrimSpace(name))
	if artifactURL = strings.TrimSpace(artifactURL); artifactURL != "" {
		message += "\n" + artifactURL
	} else if output = strings.TrimSpace(output); output != "" {
		message += "\nFile: " + output
	}
	return n.send(ctx, payload{
		title:   "clipforge - Job Complete",
		message: message,
		tags:    []string{"clipforge", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, name, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	return n.send(ctx, payload{
		title:    "clipforge - Job Failed",
		message:  fmt.Sprintf("❌ %s: %s", strings.TrimSpace(name), reason),
		tags:     []string{"clipforge", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyJobsReclaimed(ctx context.Context, count int) error {
	if count <= 0 {
		return nil
	}
	return n.send(ctx, payload{
		title:   "clipforge - Stuck Jobs",
		message: fmt.Sprintf("%d processing job(s) lost their heartbeat and were marked failed", count),
		tags:    []string{"clipforge", "heartbeat", "reclaimed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "clipforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"clipforge", "test"},
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

func (noopService) NotifyJobCompleted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error            { return nil }
func (noopService) NotifyJobsReclaimed(context.Context, int) error                   { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
