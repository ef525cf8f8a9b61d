package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"truthx/internal/deps"
	"truthx/internal/logging"
	"truthx/internal/media/ffmpeg"
	"truthx/internal/media/ffprobe"
	"truthx/internal/services"
)

// Strategy names a metadata extraction strategy.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyText       Strategy = "text"
	StrategyNone       Strategy = "none"
)

// DefaultProbeTimeout bounds each probing tool invocation.
const DefaultProbeTimeout = 30 * time.Second

var errNoParsableFields = errors.New("diagnostic output contained no parsable fields")

// Attempt records one failed extraction stage.
type Attempt struct {
	Strategy Strategy
	Err      error
}

// MarshalJSON renders the attempt with its error as a string.
func (a Attempt) MarshalJSON() ([]byte, error) {
	var msg string
	if a.Err != nil {
		msg = a.Err.Error()
	}
	return json.Marshal(struct {
		Strategy Strategy `json:"strategy"`
		Error    string   `json:"error"`
	}{a.Strategy, msg})
}

// Extraction is the outcome of Extract: the metadata, the strategy that
// produced it, and the failed attempts that preceded it.
type Extraction struct {
	Metadata Metadata
	Strategy Strategy
	Attempts []Attempt
}

// Degraded reports whether the structured strategy did not produce the result.
func (e Extraction) Degraded() bool {
	return e.Strategy != StrategyStructured
}

// ProbeFunc runs the structured probe.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// DiagnoseFunc runs the diagnostic-mode tool and returns its text output.
type DiagnoseFunc func(ctx context.Context, binary, path string) (string, error)

// Extractor selects between the structured and text probing strategies.
// It is safe for concurrent use.
type Extractor struct {
	ffprobe  string
	ffmpeg   string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	probe    ProbeFunc
	diagnose DiagnoseFunc
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithClock overrides the clock used for AnalyzedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithProbe overrides the structured probe runner.
func WithProbe(fn ProbeFunc) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.probe = fn
		}
	}
}

// WithDiagnose overrides the diagnostic tool runner.
func WithDiagnose(fn DiagnoseFunc) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.diagnose = fn
		}
	}
}

// NewExtractor builds an extractor for the given tool commands. Commands are
// resolved on every call so tools installed after startup are picked up.
func NewExtractor(ffprobeBinary, ffmpegBinary string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Extractor {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	e := &Extractor{
		ffprobe:  ffprobeBinary,
		ffmpeg:   ffmpegBinary,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "extractor"),
		now:      time.Now,
		probe:    ffprobe.Inspect,
		diagnose: ffmpeg.Diagnose,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StructuredAvailable reports whether the structured probe binary resolves.
func (e *Extractor) StructuredAvailable() bool {
	_, ok := deps.Resolve(e.ffprobe)
	return ok
}

// Extract returns canonical metadata for path. It never fails: when both
// strategies fail the metadata carries only filesystem facts and Error is set.
func (e *Extractor) Extract(ctx context.Context, path string) Extraction {
	logger := logging.WithContext(ctx, e.logger)
	var attempts []Attempt

	meta, err := e.structured(ctx, path)
	if err == nil {
		return e.finish(Extraction{Metadata: meta, Strategy: StrategyStructured}, logger)
	}
	attempts = append(attempts, Attempt{Strategy: StrategyStructured, Err: err})
	logging.WarnWithContext(logger, "structured probe failed; falling back to diagnostic text", "probe_fallback",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "install ffprobe or check the file is a readable media container"),
		logging.String(logging.FieldImpact, "metadata limited to fields visible in ffmpeg output"),
	)

	meta, err = e.text(ctx, path)
	if err == nil {
		return e.finish(Extraction{Metadata: meta, Strategy: StrategyText, Attempts: attempts}, logger)
	}
	attempts = append(attempts, Attempt{Strategy: StrategyText, Err: err})
	logging.WarnWithContext(logger, "diagnostic probe failed; continuing with empty metadata", "probe_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "install ffmpeg or verify the upload is a media file"),
		logging.String(logging.FieldImpact, "risk score uses metadata defaults"),
	)

	empty := Empty(path)
	empty.Error = errors.Join(attemptErrors(attempts)...).Error()
	return e.finish(Extraction{Metadata: empty, Strategy: StrategyNone, Attempts: attempts}, logger)
}

func (e *Extractor) finish(result Extraction, logger *slog.Logger) Extraction {
	result.Metadata.AnalyzedAt = e.now().UTC()
	if result.Metadata.Tags == nil {
		result.Metadata.Tags = TagSet{}
	}
	logger.Debug("metadata extracted",
		logging.String("strategy", string(result.Strategy)),
		logging.Int("failed_attempts", len(result.Attempts)),
		logging.Float64("duration_seconds", result.Metadata.File.DurationSeconds),
	)
	return result
}

func (e *Extractor) structured(ctx context.Context, path string) (meta Metadata, err error) {
	binary, ok := deps.Resolve(e.ffprobe)
	if !ok {
		return Metadata{}, services.Wrap(services.ErrExternalTool, "extractor", "ffprobe", fmt.Sprintf("binary %q not available", e.ffprobe), nil)
	}
	defer recoverParse(&err, "ffprobe")

	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	result, err := e.probe(probeCtx, binary, path)
	if err != nil {
		return Metadata{}, classifyToolError(probeCtx, "ffprobe", err)
	}
	return FromProbe(result, path), nil
}

func (e *Extractor) text(ctx context.Context, path string) (meta Metadata, err error) {
	binary, ok := deps.Resolve(e.ffmpeg)
	if !ok {
		return Metadata{}, services.Wrap(services.ErrExternalTool, "extractor", "ffmpeg", fmt.Sprintf("binary %q not available", e.ffmpeg), nil)
	}
	defer recoverParse(&err, "ffmpeg")

	diagCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	output, err := e.diagnose(diagCtx, binary, path)
	if err != nil {
		return Metadata{}, classifyToolError(diagCtx, "ffmpeg", err)
	}
	meta, ok = FromDiagnostic(output, path)
	if !ok {
		return Metadata{}, services.Wrap(services.ErrExternalTool, "extractor", "ffmpeg", "parse", errNoParsableFields)
	}
	return meta, nil
}

func classifyToolError(ctx context.Context, tool string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "extractor", tool, "timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, "extractor", tool, "", err)
}

func recoverParse(err *error, tool string) {
	if r := recover(); r != nil {
		*err = services.Wrap(services.ErrExternalTool, "extractor", tool, fmt.Sprintf("parser panic: %v", r), nil)
	}
}

func attemptErrors(attempts []Attempt) []error {
	errs := make([]error, 0, len(attempts))
	for _, a := range attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	return errs
}
