package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"screenreview/internal/config"
)

const userAgent = "ScreenReview-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyScreenCompleted(ctx context.Context, screen string, annotations int, costEuro float64) error
	NotifyScreenFailed(ctx context.Context, screen, reason string) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, totalCostEuro float64) error
	NotifyBudgetWarning(ctx context.Context, spentEuro, limitEuro float64) error
	NotifyError(ctx context.Context, err error, context string) error
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
		screens:  cfg.Notifications.Screens,
		queue:    cfg.Notifications.Queue,
		errors:   cfg.Notifications.Errors,
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
	screens  bool
	queue    bool
	errors   bool
}

func (n *ntfyService) NotifyScreenCompleted(ctx context.Context, screen string, annotations int, costEuro float64) error {
	if !n.screens {
		return nil
	}
	screen = strings.TrimSpace(screen)
	message := fmt.Sprintf("Screen complete: %s (%d annotations)", screen, annotations)
	if costEuro > 0 {
		message = fmt.Sprintf("%s\nCost: %.4f EUR", message, costEuro)
	}
	data := payload{
		title:   "Screen Review - Screen Complete",
		message: message,
		tags:    []string{"screenreview", "screen", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScreenFailed(ctx context.Context, screen, reason string) error {
	if !n.screens {
		return nil
	}
	screen = strings.TrimSpace(screen)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Screen Review - Screen Failed",
		message:  fmt.Sprintf("Screen failed: %s\n%s", screen, reason),
		tags:     []string{"screenreview", "screen", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, totalCostEuro float64) error {
	if !n.queue {
		return nil
	}
	var title, message string
	if failed == 0 {
		title = "Screen Review - Queue Complete"
		message = fmt.Sprintf("Queue drained: %d screens processed", processed)
	} else {
		title = "Screen Review - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue drained: %d succeeded, %d failed", processed, failed)
	}
	if totalCostEuro > 0 {
		message = fmt.Sprintf("%s\nTotal cost: %.4f EUR", message, totalCostEuro)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"screenreview", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBudgetWarning(ctx context.Context, spentEuro, limitEuro float64) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:    "Screen Review - Budget Warning",
		message:  fmt.Sprintf("Provider spend at %.2f EUR of %.2f EUR budget", spentEuro, limitEuro),
		tags:     []string{"screenreview", "budget", "warning"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Screen Review - Error",
		message:  builder.String(),
		tags:     []string{"screenreview", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Screen Review - Test",
		message:  "Notification system test",
		tags:     []string{"screenreview", "test"},
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

func (noopService) NotifyScreenCompleted(context.Context, string, int, float64) error { return nil }
func (noopService) NotifyScreenFailed(context.Context, string, string) error          { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, float64) error     { return nil }
func (noopService) NotifyBudgetWarning(context.Context, float64, float64) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
