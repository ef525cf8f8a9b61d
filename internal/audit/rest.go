package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"truthx/internal/logging"
	"truthx/internal/services"
)

const (
	restRetries   = 2
	restRetryBase = 500 * time.Millisecond
)

// RESTSink inserts entries into a PostgREST table such as a Supabase project.
type RESTSink struct {
	endpoint  string
	key       string
	client    *http.Client
	retryBase time.Duration
	logger    *slog.Logger
}

// RESTOption customizes a RESTSink.
type RESTOption func(*RESTSink)

// WithRESTClient overrides the HTTP client.
func WithRESTClient(client *http.Client) RESTOption {
	return func(s *RESTSink) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRESTRetryBase overrides the initial retry delay.
func WithRESTRetryBase(d time.Duration) RESTOption {
	return func(s *RESTSink) {
		if d > 0 {
			s.retryBase = d
		}
	}
}

// NewRESTSink builds a sink posting to <baseURL>/rest/v1/<table>.
func NewRESTSink(baseURL, key, table string, timeout time.Duration, logger *slog.Logger, opts ...RESTOption) (*RESTSink, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || strings.TrimSpace(key) == "" || strings.TrimSpace(table) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "audit", "rest sink", "url, key and table are required", nil)
	}
	endpoint, err := url.JoinPath(baseURL, "rest", "v1", table)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "audit", "rest sink", "invalid url", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sink := &RESTSink{
		endpoint:  endpoint,
		key:       key,
		client:    &http.Client{Timeout: timeout},
		retryBase: restRetryBase,
		logger:    logging.NewComponentLogger(logger, "audit-rest"),
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

// restRow mirrors the analysis_logs table columns.
type restRow struct {
	FileName  string  `json:"file_name"`
	FileType  string  `json:"file_type"`
	Score     int     `json:"score"`
	RiskLevel string  `json:"risk_level"`
	Summary   string  `json:"summary"`
	Metadata  *string `json:"metadata"`
}

// Record implements Sink.
func (s *RESTSink) Record(ctx context.Context, entry Entry) error {
	row := restRow{
		FileName:  entry.FileName,
		FileType:  entry.FileType,
		Score:     entry.Score,
		RiskLevel: entry.RiskLevel,
		Summary:   entry.Summary,
	}
	if entry.MetadataJSON != "" {
		row.Metadata = &entry.MetadataJSON
	}
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode audit row: %w", err)
	}

	backoff := retry.WithMaxRetries(restRetries, retry.NewFibonacci(s.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.post(ctx, body)
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "audit", "rest insert", "insert failed", err)
	}
	s.logger.Debug("audit row inserted", logging.String("file_name", entry.FileName))
	return nil
}

func (s *RESTSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(statusErr)
	}
	return statusErr
}
