package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"truthx/internal/classify"
	"truthx/internal/drift"
	"truthx/internal/metadata"
	"truthx/internal/risk"
	"truthx/internal/search"
)

// Defaults reported when no assessment was produced.
const (
	DefaultScore = 85
	DefaultLevel = risk.LevelLow

	defaultSummary = "Analysis complete"
)

// Models reported in ModelsUsed.
const (
	ModelsReal = "real"
	ModelsStub = "stub"
)

// Weights used for the combined confidence.
const (
	videoWeight = 0.45
	audioWeight = 0.30
	textWeight  = 0.25

	fakeThreshold = 0.5
)

// Report is the analysis response.
type Report struct {
	RequestID          string                `json:"request_id,omitempty"`
	Summary            string                `json:"summary"`
	AnalyzedAt         time.Time             `json:"analyzed_at"`
	Score              int                   `json:"score"`
	RiskLevel          risk.Level            `json:"risk_level"`
	Metadata           *metadata.Metadata    `json:"metadata"`
	Risk               *risk.Assessment      `json:"risk_assessment"`
	Drift              []drift.Point         `json:"drift_data"`
	VideoAnalysis      *classify.FrameResult `json:"video_analysis"`
	AudioAnalysis      *classify.AudioResult `json:"audio_analysis"`
	TextAnalysis       *classify.TextResult  `json:"text_analysis"`
	RelatedArticles    []search.Result       `json:"related_articles"`
	CombinedConfidence *float64              `json:"combined_confidence"`
	OverallLabel       string                `json:"overall_label,omitempty"`
	ModelsUsed         string                `json:"models_used"`
}

// MarshalJSON renders absent metadata as an empty object.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	out := struct {
		plain
		Metadata any `json:"metadata"`
	}{plain: plain(r), Metadata: struct{}{}}
	if r.Metadata != nil {
		out.Metadata = r.Metadata
	}
	return json.Marshal(out)
}

// Inputs collects everything Assemble merges. Nil fields mean the stage did
// not run.
type Inputs struct {
	RequestID  string
	Metadata   *metadata.Metadata
	Risk       *risk.Assessment
	Drift      []drift.Point
	Video      *classify.FrameResult
	Audio      *classify.AudioResult
	Text       *classify.TextResult
	Articles   []search.Result
	ModelsUsed string
	Now        time.Time
}

// Assemble builds the report from in.
func Assemble(in Inputs) Report {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	models := in.ModelsUsed
	if models == "" {
		models = ModelsStub
	}

	rep := Report{
		RequestID:       in.RequestID,
		Summary:         Summarize(in.Video, in.Text, len(in.Articles)),
		AnalyzedAt:      now.UTC(),
		Score:           DefaultScore,
		RiskLevel:       DefaultLevel,
		Metadata:        in.Metadata,
		Risk:            in.Risk,
		Drift:           in.Drift,
		VideoAnalysis:   in.Video,
		AudioAnalysis:   in.Audio,
		TextAnalysis:    in.Text,
		RelatedArticles: in.Articles,
		ModelsUsed:      models,
	}
	if in.Risk != nil {
		rep.Score = in.Risk.Score
		rep.RiskLevel = in.Risk.Level
	}
	if rep.Drift == nil {
		rep.Drift = []drift.Point{}
	}
	if rep.RelatedArticles == nil {
		rep.RelatedArticles = []search.Result{}
	}
	if combined, ok := Combine(in.Video, in.Text); ok {
		rep.CombinedConfidence = &combined
		rep.OverallLabel = risk.LabelReal
		if combined >= fakeThreshold {
			rep.OverallLabel = risk.LabelFake
		}
	}
	return rep
}

// Summarize renders the one-line verdict.
func Summarize(video *classify.FrameResult, text *classify.TextResult, articles int) string {
	var parts []string
	if video != nil {
		parts = append(parts, fmt.Sprintf("Video: %s (%s confidence)", labelOrUnknown(video.Label), percent(video.Confidence)))
	}
	if text != nil {
		parts = append(parts, fmt.Sprintf("Text: %s (%s confidence)", labelOrUnknown(text.Label), percent(text.Confidence)))
	}
	if articles > 0 {
		parts = append(parts, fmt.Sprintf("%d related article(s) found", articles))
	}
	if len(parts) == 0 {
		return defaultSummary
	}
	return strings.Join(parts, " | ")
}

// Combine returns the weighted mean confidence over the results that carry
// one. Audio results have no confidence and never contribute.
func Combine(video *classify.FrameResult, text *classify.TextResult) (float64, bool) {
	var sum, weight float64
	if video != nil {
		sum += video.Confidence * videoWeight
		weight += videoWeight
	}
	if text != nil {
		sum += text.Confidence * textWeight
		weight += textWeight
	}
	if weight == 0 {
		return 0, false
	}
	return math.Round(sum/weight*10000) / 10000, true
}

// HighRisk reports whether the report warrants an operator notification.
func (r Report) HighRisk() bool {
	if r.RiskLevel == risk.LevelHigh {
		return true
	}
	return r.Risk != nil && r.Risk.HasCritical()
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func labelOrUnknown(label string) string {
	if strings.TrimSpace(label) == "" {
		return risk.LabelUnknown
	}
	return label
}
