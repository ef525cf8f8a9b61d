package classify

import (
	"truthx/internal/risk"
)

// FrameResult is the aggregated verdict over sampled frames.
type FrameResult struct {
	Label      string               `json:"label"`
	Confidence float64              `json:"confidence"`
	Average    map[string]float64   `json:"average,omitempty"`
	PerFrame   []map[string]float64 `json:"per_frame,omitempty"`
	Frames     int                  `json:"frames_analyzed"`
	Error      string               `json:"error,omitempty"`
}

// Signal converts the result into the scorer's input.
func (r *FrameResult) Signal() *risk.MLSignal {
	if r == nil {
		return nil
	}
	return &risk.MLSignal{Label: r.Label, Confidence: r.Confidence, PerFrame: r.PerFrame}
}

// TextResult is the text classifier verdict.
type TextResult struct {
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	AIProbability float64 `json:"ai_probability"`
	Model         string  `json:"model,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Signal converts the result into the text scorer's input.
func (r *TextResult) Signal() risk.TextSignal {
	if r == nil {
		return risk.TextSignal{}
	}
	return risk.TextSignal{Label: r.Label, AIProbability: r.AIProbability}
}

// AudioResult is the synthetic-voice detector verdict. FakeProbability is nil
// when the detector produced no estimate.
type AudioResult struct {
	FakeProbability *float64 `json:"fake_probability"`
	Error           string   `json:"error,omitempty"`
}

// Stub verdicts reported when no model is configured.
const (
	StubLabel      = risk.LabelReal
	StubConfidence = 0.05
)
