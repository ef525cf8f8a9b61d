package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the OpenRouter chat completions endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

const (
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryAttempts  = 3
	snippetLimit          = 160
)

// ErrNoAPIKey is returned when a request is attempted without credentials.
var ErrNoAPIKey = errors.New("llm: api key required")

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client wraps a chat completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the attempt count and backoff delays.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.baseDelay = max(baseDelay, 0)
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithSleeper replaces the retry wait; the context is still checked afterwards.
func WithSleeper(fn func(time.Duration)) Option {
	return func(c *Client) {
		if fn == nil {
			return
		}
		c.sleep = func(ctx context.Context, d time.Duration) error {
			fn(d)
			return ctx.Err()
		}
	}
}

// NewClient constructs a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   defaultRetryAttempts,
		baseDelay:  defaultRetryBaseDelay,
		maxDelay:   defaultRetryMaxDelay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// CompleteJSON sends a JSON-mode chat completion and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", errors.New("llm complete: system and user prompts required")
	}
	if !c.Configured() {
		return "", ErrNoAPIKey
	}
	return c.completeWithRetry(ctx, "llm complete", chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
}

// HealthCheck verifies the key and model with a trivial JSON round trip.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type statusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, snippet(e.Body))
}

type emptyContentError struct {
	op           string
	finishReason string
	refusal      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q)", e.op, e.finishReason, e.refusal)
}

func (c *Client) completeWithRetry(ctx context.Context, op string, payload chatRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		content, err := c.send(ctx, op, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt)
		if !retry {
			return "", err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, c.attempts, lastErr)
}

func (c *Client) send(ctx context.Context, op string, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &statusError{StatusCode: resp.StatusCode, Body: string(body), RetryAfter: retryAfter}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	empty := &emptyContentError{op: op}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if empty.finishReason == "" {
			empty.finishReason = choice.FinishReason
		}
		if empty.refusal == "" {
			empty.refusal = choice.Message.Refusal
		}
	}
	return "", empty
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.attempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var empty *emptyContentError
	if errors.As(err, &empty) {
		return c.backoff(attempt), true
	}

	var status *statusError
	if errors.As(err, &status) {
		if status.StatusCode == http.StatusRequestTimeout ||
			status.StatusCode == http.StatusTooManyRequests ||
			status.StatusCode >= http.StatusInternalServerError {
			if status.RetryAfter > 0 {
				return min(status.RetryAfter, c.maxDelay), true
			}
			return c.backoff(attempt), true
		}
		return 0, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles from baseDelay per attempt, capped at maxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt && delay < c.maxDelay; i++ {
		delay *= 2
	}
	return min(delay, c.maxDelay)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}

// DecodeJSON decodes a model response into target, tolerating code fences and
// prose around a single JSON object or array.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	extracted := extractJSON(trimmed)
	if extracted == "" || extracted == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("%w (payload snippet: %s)", err, snippet(extracted))
	}
	return nil
}

func extractJSON(content string) string {
	body := stripCodeFence(content)
	if body == "" || body[0] == '{' || body[0] == '[' {
		return body
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(body, pair[0])
		end := strings.LastIndex(body, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(body[start : end+1])
		}
	}
	return body
}

func stripCodeFence(content string) string {
	body, ok := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !ok {
		return strings.TrimSpace(content)
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return clean
}
