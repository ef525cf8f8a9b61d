package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"truthx/internal/logging"
	"truthx/internal/risk"
)

// FrameClassifier scores decoded frames.
type FrameClassifier interface {
	ClassifyFrames(ctx context.Context, frames []image.Image) (FrameResult, error)
}

// StubFrameClassifier reports a fixed low-confidence real verdict.
type StubFrameClassifier struct{}

// ClassifyFrames implements FrameClassifier.
func (StubFrameClassifier) ClassifyFrames(_ context.Context, frames []image.Image) (FrameResult, error) {
	return FrameResult{Label: StubLabel, Confidence: StubConfidence, Frames: len(frames)}, nil
}

const (
	defaultBatchSize     = 8
	defaultFrameTimeout  = 60 * time.Second
	defaultRetryAttempts = 2
	jpegQuality          = 90
	maxParallelBatches   = 2
	maxResponseBytes     = 4 << 20
)

var fakeLabels = []string{"fake", "deepfake"}

// HTTPFrameClassifier posts JPEG-encoded frame batches to an inference
// endpoint that replies {"predictions":[{"<label>":<prob>,...},...]} with one
// entry per frame, in order.
type HTTPFrameClassifier struct {
	endpoint  string
	batchSize int
	client    *http.Client
	retryBase time.Duration
	retries   uint64
	logger    *slog.Logger
}

// HTTPOption customizes an HTTPFrameClassifier.
type HTTPOption func(*HTTPFrameClassifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPFrameClassifier) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRetryBase overrides the Fibonacci backoff base used between attempts.
func WithRetryBase(base time.Duration) HTTPOption {
	return func(c *HTTPFrameClassifier) {
		if base > 0 {
			c.retryBase = base
		}
	}
}

// NewHTTPFrameClassifier builds a classifier for endpoint.
func NewHTTPFrameClassifier(endpoint string, batchSize int, timeout time.Duration, logger *slog.Logger, opts ...HTTPOption) *HTTPFrameClassifier {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if timeout <= 0 {
		timeout = defaultFrameTimeout
	}
	c := &HTTPFrameClassifier{
		endpoint:  strings.TrimSpace(endpoint),
		batchSize: batchSize,
		client:    &http.Client{Timeout: timeout},
		retryBase: time.Second,
		retries:   defaultRetryAttempts,
		logger:    logging.NewComponentLogger(logger, "frame-classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyFrames implements FrameClassifier.
func (c *HTTPFrameClassifier) ClassifyFrames(ctx context.Context, frames []image.Image) (FrameResult, error) {
	if len(frames) == 0 {
		c.logger.Warn("no frames provided for classification",
			logging.String(logging.FieldEventType, "frames_empty"),
			logging.String(logging.FieldImpact, "video verdict reported as unknown"),
		)
		return FrameResult{Label: risk.LabelUnknown, Average: map[string]float64{}, PerFrame: []map[string]float64{}}, nil
	}

	started := time.Now()
	perFrame := make([]map[string]float64, len(frames))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelBatches)
	for start := 0; start < len(frames); start += c.batchSize {
		end := min(start+c.batchSize, len(frames))
		group.Go(func() error {
			predictions, err := c.classifyBatch(groupCtx, frames[start:end])
			if err != nil {
				return fmt.Errorf("frames %d-%d: %w", start, end-1, err)
			}
			copy(perFrame[start:end], predictions)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return FrameResult{}, err
	}

	result := Aggregate(perFrame)
	c.logger.Info("frame classification complete",
		logging.String(logging.FieldEventType, "frames_classified"),
		logging.Int("frames", len(frames)),
		logging.String("label", result.Label),
		logging.Float64("confidence", result.Confidence),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (c *HTTPFrameClassifier) classifyBatch(ctx context.Context, frames []image.Image) ([]map[string]float64, error) {
	body, contentType, err := encodeFrames(frames)
	if err != nil {
		return nil, err
	}

	var predictions []map[string]float64
	backoff := retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build inference request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("inference request: %w", err))
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read inference response: %w", err))
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("inference endpoint returned %s", resp.Status))
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("inference endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		}

		var decoded struct {
			Predictions []map[string]float64 `json:"predictions"`
		}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return fmt.Errorf("decode inference response: %w", err)
		}
		if len(decoded.Predictions) != len(frames) {
			return fmt.Errorf("inference returned %d predictions for %d frames", len(decoded.Predictions), len(frames))
		}
		predictions = decoded.Predictions
		return nil
	})
	return predictions, err
}

func encodeFrames(frames []image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for i, frame := range frames {
		if frame == nil {
			return nil, "", fmt.Errorf("frame %d is nil", i)
		}
		part, err := writer.CreateFormFile("frames", fmt.Sprintf("frame-%04d.jpg", i))
		if err != nil {
			return nil, "", fmt.Errorf("create frame part: %w", err)
		}
		if err := jpeg.Encode(part, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode frame %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// Aggregate averages per-frame class probabilities and picks the dominant
// class. Labels missing from a frame count as zero. The verdict is "fake" when
// the dominant class is a fake label and "real" otherwise.
func Aggregate(perFrame []map[string]float64) FrameResult {
	if len(perFrame) == 0 {
		return FrameResult{Label: risk.LabelUnknown, Average: map[string]float64{}, PerFrame: []map[string]float64{}}
	}
	sums := make(map[string]float64)
	for _, frame := range perFrame {
		for label, prob := range frame {
			sums[label] += prob
		}
	}
	labels := make([]string, 0, len(sums))
	average := make(map[string]float64, len(sums))
	for label, sum := range sums {
		labels = append(labels, label)
		average[label] = round4(sum / float64(len(perFrame)))
	}
	slices.Sort(labels)

	best := ""
	for _, label := range labels {
		if best == "" || average[label] > average[best] {
			best = label
		}
	}
	verdict := risk.LabelReal
	if slices.ContainsFunc(fakeLabels, func(fake string) bool { return strings.EqualFold(fake, best) }) {
		verdict = risk.LabelFake
	}
	return FrameResult{
		Label:      verdict,
		Confidence: average[best],
		Average:    average,
		PerFrame:   perFrame,
		Frames:     len(perFrame),
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// SafeClassifyFrames calls classifier and converts errors and panics into an
// unknown verdict carrying the message.
func SafeClassifyFrames(ctx context.Context, classifier FrameClassifier, frames []image.Image, logger *slog.Logger) (result FrameResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedFrames(fmt.Errorf("frame classifier panic: %v", r), logger)
		}
	}()
	if classifier == nil {
		return failedFrames(errors.New("frame classifier not configured"), logger)
	}
	res, err := classifier.ClassifyFrames(ctx, frames)
	if err != nil {
		return failedFrames(err, logger)
	}
	return res
}

func failedFrames(err error, logger *slog.Logger) FrameResult {
	logging.ErrorWithContext(logger, "frame classification failed", "frames_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check video.inference_url and that the inference service is reachable"),
		logging.String(logging.FieldImpact, "risk score uses metadata rules only"),
	)
	return FrameResult{Label: risk.LabelUnknown, Confidence: 0, Error: err.Error()}
}
