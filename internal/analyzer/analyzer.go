package analyzer

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"truthx/internal/audit"
	"truthx/internal/classify"
	"truthx/internal/config"
	"truthx/internal/drift"
	"truthx/internal/logging"
	"truthx/internal/media/ffmpeg"
	"truthx/internal/metadata"
	"truthx/internal/notifications"
	"truthx/internal/report"
	"truthx/internal/risk"
	"truthx/internal/search"
	"truthx/internal/services"
	"truthx/internal/services/llm"
)

// NoInputMessage is the client-facing text for ErrNoInput.
const NoInputMessage = "Provide video or text."

// ErrNoInput rejects requests carrying neither media nor a text query.
var ErrNoInput = services.Wrap(services.ErrValidation, "analyzer", "analyze", "no video or text provided", nil)

const defaultSinkTimeout = 15 * time.Second

// MetadataExtractor produces canonical metadata for a media file.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) metadata.Extraction
}

// FrameSampler decodes the frames handed to the frame classifier. duration is
// the extracted clip length in seconds, or 0 when unknown.
type FrameSampler func(ctx context.Context, path string, duration float64) ([]image.Image, error)

// ArticleSearcher finds fact-check articles related to a query.
type ArticleSearcher interface {
	Search(query string, k int) []search.Result
}

// Upload is media received from a client.
type Upload struct {
	Name string
	Body io.Reader
}

// Request is one analysis call. At least one of Upload and Query is required.
type Request struct {
	Upload *Upload
	Query  string
}

// Analyzer holds the configuration and collaborators shared by all requests.
type Analyzer struct {
	cfg         *config.Config
	logger      *slog.Logger
	extractor   MetadataExtractor
	sampler     FrameSampler
	scorer      *risk.Scorer
	drift       *drift.Synthesizer
	frames      classify.FrameClassifier
	text        classify.TextClassifier
	audio       classify.AudioDetector
	articles    ArticleSearcher
	topK        int
	sink        audit.Sink
	notifier    notifications.Service
	now         func() time.Time
	sinkTimeout time.Duration
	modelsUsed  string

	background sync.WaitGroup
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithExtractor overrides metadata extraction.
func WithExtractor(extractor MetadataExtractor) Option {
	return func(a *Analyzer) { a.extractor = extractor }
}

// WithFrameSampler overrides frame decoding.
func WithFrameSampler(sampler FrameSampler) Option {
	return func(a *Analyzer) { a.sampler = sampler }
}

// WithFrameClassifier overrides the frame classifier.
func WithFrameClassifier(classifier classify.FrameClassifier) Option {
	return func(a *Analyzer) { a.frames = classifier }
}

// WithTextClassifier overrides the text classifier.
func WithTextClassifier(classifier classify.TextClassifier) Option {
	return func(a *Analyzer) { a.text = classifier }
}

// WithAudioDetector overrides the synthetic-voice detector.
func WithAudioDetector(detector classify.AudioDetector) Option {
	return func(a *Analyzer) { a.audio = detector }
}

// WithArticleSearcher sets the related-article index. Without one, and with
// search disabled, no articles are returned.
func WithArticleSearcher(searcher ArticleSearcher) Option {
	return func(a *Analyzer) { a.articles = searcher }
}

// WithDrift overrides the drift synthesizer.
func WithDrift(synth *drift.Synthesizer) Option {
	return func(a *Analyzer) { a.drift = synth }
}

// WithSink sets where completed analyses are recorded.
func WithSink(sink audit.Sink) Option {
	return func(a *Analyzer) { a.sink = sink }
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(a *Analyzer) { a.notifier = notifier }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// New builds an Analyzer. Collaborators not supplied through options are
// derived from cfg: an empty inference URL or LLM key selects the stubs.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "new", "configuration required", nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "new", "prepare directories", err)
	}

	a := &Analyzer{
		cfg:         cfg,
		now:         time.Now,
		topK:        cfg.Search.TopK,
		sinkTimeout: defaultSinkTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "analyzer")
	if cfg.Audit.TimeoutSeconds > 0 {
		a.sinkTimeout = time.Duration(cfg.Audit.TimeoutSeconds) * time.Second
	}

	if a.extractor == nil {
		a.extractor = metadata.NewExtractor(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary, cfg.ProbeTimeout(), a.logger)
	}
	if a.sampler == nil {
		a.sampler = ffmpegSampler(cfg)
	}
	if a.scorer == nil {
		a.scorer = risk.NewScorer()
	}
	if a.drift == nil {
		a.drift = drift.NewSynthesizer()
	}
	if a.frames == nil {
		if url := strings.TrimSpace(cfg.Video.InferenceURL); url != "" {
			a.frames = classify.NewHTTPFrameClassifier(url, cfg.Video.BatchSize,
				time.Duration(cfg.Video.TimeoutSeconds)*time.Second, a.logger)
		} else {
			a.frames = classify.StubFrameClassifier{}
		}
	}
	if a.text == nil {
		if strings.TrimSpace(cfg.LLM.APIKey) != "" {
			a.text = classify.NewLLMTextClassifier(llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			}))
		} else {
			a.text = classify.StubTextClassifier{}
		}
	}
	if a.audio == nil {
		a.audio = classify.StubAudioDetector{Logger: a.logger}
	}
	if a.articles == nil && cfg.Search.Enabled {
		index, err := search.NewIndex(cfg.Paths.ArticlesPath, a.logger)
		if err != nil {
			return nil, err
		}
		a.articles = index
	}
	if a.sink == nil {
		a.sink = audit.Nop{}
	}
	if a.notifier == nil {
		a.notifier = notifications.NewService(cfg)
	}
	a.modelsUsed = modelsUsed(a.frames, a.text)
	return a, nil
}

// ModelsUsed reports whether real classifiers or stubs are configured.
func (a *Analyzer) ModelsUsed() string {
	return a.modelsUsed
}

// Close waits for background audit writes and notifications to finish.
func (a *Analyzer) Close() error {
	a.background.Wait()
	return nil
}

// Analyze runs the pipeline for req. An upload is staged into a temp file
// that is removed before Analyze returns, including when a stage panics.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (report.Report, error) {
	if req.Upload == nil && strings.TrimSpace(req.Query) == "" {
		return report.Report{}, ErrNoInput
	}
	var staged *Staged
	if req.Upload != nil {
		var err error
		if staged, err = a.Stage(req.Upload); err != nil {
			return report.Report{}, err
		}
		defer staged.Remove()
	}
	return a.AnalyzeStaged(ctx, staged, req.Query)
}

// AnalyzeStaged runs the pipeline for an already staged upload and/or a text
// query. It does not remove staged.
func (a *Analyzer) AnalyzeStaged(ctx context.Context, staged *Staged, query string) (report.Report, error) {
	query = strings.TrimSpace(query)
	if staged == nil && query == "" {
		return report.Report{}, ErrNoInput
	}
	ctx, requestID := withRequestID(ctx)
	logger := logging.WithContext(ctx, a.logger)
	r := a.newRun(requestID)

	if staged != nil {
		r.subject = staged.subject
		a.analyzeMedia(ctx, staged.path, logger, r)
	}
	if query != "" {
		a.analyzeText(ctx, query, staged == nil, logger, r)
	}
	return a.finish(ctx, logger, r), nil
}

type run struct {
	started time.Time
	subject subject
	in      report.Inputs
}

// subject identifies the analyzed media for the audit record.
type subject struct {
	name     string
	mimeType string
	digest   string
}

func (a *Analyzer) newRun(requestID string) *run {
	return &run{
		started: time.Now(),
		in: report.Inputs{
			RequestID:  requestID,
			ModelsUsed: a.modelsUsed,
		},
	}
}

func (a *Analyzer) analyzeMedia(ctx context.Context, path string, logger *slog.Logger, r *run) {
	extraction := a.extractor.Extract(ctx, path)
	meta := extraction.Metadata
	meta.OriginalFilename = r.subject.name
	r.in.Metadata = &meta

	video := a.classifyVideo(ctx, path, meta.File.DurationSeconds, logger)
	r.in.Video = &video

	assessment := a.scorer.Assess(meta, video.Signal())
	r.in.Risk = &assessment
	r.in.Drift = a.drift.Synthesize(meta.File.DurationSeconds, video.PerFrame, assessment.Score)

	audio := classify.SafeDetectAudio(ctx, a.audio, path, logger)
	r.in.Audio = &audio

	logger.Info("media analyzed",
		logging.String(logging.FieldEventType, "media_analyzed"),
		logging.String("strategy", string(extraction.Strategy)),
		logging.String("video_label", video.Label),
		logging.Int("score", assessment.Score),
		logging.Int("flags", assessment.FlagCount),
		logging.Int("drift_points", len(r.in.Drift)),
	)
}

func (a *Analyzer) classifyVideo(ctx context.Context, path string, duration float64, logger *slog.Logger) classify.FrameResult {
	if _, stub := a.frames.(classify.StubFrameClassifier); stub {
		return classify.SafeClassifyFrames(ctx, a.frames, nil, logger)
	}
	frames, err := a.sampler(ctx, path, duration)
	if err != nil {
		logging.WarnWithContext(logger, "frame sampling failed", "frames_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg is installed and the upload is a video"),
			logging.String(logging.FieldImpact, "video verdict reported as unknown"),
		)
		return classify.FrameResult{Label: risk.LabelUnknown, Error: err.Error()}
	}
	return classify.SafeClassifyFrames(ctx, a.frames, frames, logger)
}

func (a *Analyzer) analyzeText(ctx context.Context, query string, textOnly bool, logger *slog.Logger, r *run) {
	text, articles := a.classifyAndSearch(ctx, query, logger)
	r.in.Text = &text
	r.in.Articles = articles
	if textOnly {
		assessment := a.scorer.AssessText(text.Signal())
		r.in.Risk = &assessment
	}
}

func (a *Analyzer) finish(ctx context.Context, logger *slog.Logger, r *run) report.Report {
	r.in.Now = a.now()
	rep := report.Assemble(r.in)
	logger.Info("analysis complete",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Int("score", rep.Score),
		logging.String("risk_level", string(rep.RiskLevel)),
		logging.String("summary", rep.Summary),
		logging.Duration("elapsed", time.Since(r.started)),
	)
	a.dispatch(ctx, rep, r.subject)
	return rep
}

func withRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := services.RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return services.WithRequestID(ctx, id), id
}

func modelsUsed(frames classify.FrameClassifier, text classify.TextClassifier) string {
	_, stubFrames := frames.(classify.StubFrameClassifier)
	_, stubText := text.(classify.StubTextClassifier)
	if stubFrames && stubText {
		return report.ModelsStub
	}
	return report.ModelsReal
}

func ffmpegSampler(cfg *config.Config) FrameSampler {
	opts := ffmpeg.SampleOptions{
		Rate:      cfg.Video.FrameSampleRate,
		Size:      cfg.Video.FrameSize,
		MaxFrames: cfg.Video.MaxFrames,
	}
	binary := cfg.Probe.FFmpegBinary
	timeout := time.Duration(cfg.Video.TimeoutSeconds) * time.Second
	return func(ctx context.Context, path string, duration float64) ([]image.Image, error) {
		sample := opts
		sample.Duration = duration
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		frames, err := ffmpeg.SampleFrames(ctx, binary, path, sample)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "analyzer", "sample frames", "frame sampling timed out", err)
		}
		return frames, err
	}
}
