package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"truthx/internal/config"
)

const userAgent = "truthx/0.1.0"

// Event identifies a notification type.
type Event string

const (
	// EventAnalysisCompleted is published after every analysis. It is not pushed.
	EventAnalysisCompleted Event = "analysis_completed"
	// EventHighRisk is published when an analysis lands in the high risk band
	// or carries a critical flag.
	EventHighRisk Event = "high_risk"
	// EventError reports a failure the operator should look at.
	EventError Event = "error"
	// EventTest is sent by the test-notify command.
	EventTest Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
		highRisk: cfg.Notifications.HighRisk,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	highRisk bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventHighRisk:
		if !n.highRisk {
			return message{}, false
		}
		name := payload.text("fileName")
		if name == "" {
			name = "text query"
		}
		body := fmt.Sprintf("⚠️ %s scored %s (%s risk)", name, payload.text("score"), payload.text("riskLevel"))
		if summary := payload.text("summary"); summary != "" {
			body += "\n" + summary
		}
		return message{
			title:    "truthx - High Risk",
			body:     body,
			tags:     []string{"truthx", "risk", payload.text("riskLevel")},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := payload.text("error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "truthx - Error",
			body:     builder.String(),
			tags:     []string{"truthx", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "truthx - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"truthx", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if tags := compactTags(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
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

func compactTags(tags []string) []string {
	out := tags[:0:0]
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
