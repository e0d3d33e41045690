package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lookout/internal/config"
)

const userAgent = "Lookout-Go/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifySessionStarted(ctx context.Context, projectName, sessionID string) error
	NotifySessionEnded(ctx context.Context, projectName, sessionID string, eventCount int64) error
	NotifyMonitorError(ctx context.Context, err error, contextLabel string) error
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
		cfg:      cfg.Notifications,
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
	cfg      config.Notifications
}

func (n *ntfyService) NotifySessionStarted(ctx context.Context, projectName, sessionID string) error {
	if !n.cfg.SessionStarted {
		return nil
	}
	data := payload{
		title:   "Lookout - Session Started",
		message: fmt.Sprintf("New session in %s: %s", strings.TrimSpace(projectName), shortID(sessionID)),
		tags:    []string{"lookout", "session", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionEnded(ctx context.Context, projectName, sessionID string, eventCount int64) error {
	if !n.cfg.SessionEnded {
		return nil
	}
	data := payload{
		title:   "Lookout - Session Ended",
		message: fmt.Sprintf("Session %s in %s ended after %d events", shortID(sessionID), strings.TrimSpace(projectName), eventCount),
		tags:    []string{"lookout", "session", "ended"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMonitorError(ctx context.Context, err error, contextLabel string) error {
	if !n.cfg.Errors {
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
		title:    "Lookout - Error",
		message:  builder.String(),
		tags:     []string{"lookout", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lookout - Test",
		message:  "Notification system test",
		tags:     []string{"lookout", "test"},
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

// shortID keeps notifications readable; the full UUID adds nothing on a phone.
func shortID(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}

type noopService struct{}

func (noopService) NotifySessionStarted(context.Context, string, string) error        { return nil }
func (noopService) NotifySessionEnded(context.Context, string, string, int64) error   { return nil }
func (noopService) NotifyMonitorError(context.Context, error, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
