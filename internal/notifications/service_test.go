package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"truthx/internal/config"
	"truthx/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "high risk video",
			event: notifications.EventHighRisk,
			payload: notifications.Payload{
				"fileName":  "clip.mp4",
				"score":     30,
				"riskLevel": "high",
				"summary":   "Video: fake (91% confidence)",
			},
			expectTitle:    "truthx - High Risk",
			expectMessage:  "⚠️ clip.mp4 scored 30 (high risk)\nVideo: fake (91% confidence)",
			expectTags:     "truthx,risk,high",
			expectPriority: "high",
		},
		{
			name:  "high risk text without file",
			event: notifications.EventHighRisk,
			payload: notifications.Payload{
				"score":     12,
				"riskLevel": "high",
			},
			expectTitle:    "truthx - High Risk",
			expectMessage:  "⚠️ text query scored 12 (high risk)",
			expectTags:     "truthx,risk,high",
			expectPriority: "high",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "audit",
				"error":   errors.New("disk full"),
			},
			expectTitle:    "truthx - Error",
			expectMessage:  "❌ Error with audit: disk full",
			expectTags:     "truthx,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "truthx - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "truthx,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title, body, tags, priority, agent string
			}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				captured.agent = r.Header.Get("User-Agent")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.HighRisk = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
			if !strings.HasPrefix(captured.agent, "truthx/") {
				t.Fatalf("unexpected user agent %q", captured.agent)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.HighRisk = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventAnalysisCompleted,
		notifications.EventHighRisk,
		notifications.Event("unknown"),
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
