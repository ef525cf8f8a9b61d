package risk

import "strings"

// Severity grades how strongly a flag counts against authenticity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Level is the risk bucket derived from a score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Score thresholds for LevelFor.
const (
	LowRiskThreshold    = 70
	MediumRiskThreshold = 40
)

// LevelFor maps an authenticity score to its risk level.
func LevelFor(score int) Level {
	switch {
	case score >= LowRiskThreshold:
		return LevelLow
	case score >= MediumRiskThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Flag is one fired rule.
type Flag struct {
	Label    string   `json:"label"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

// Assessment is the immutable scoring result.
type Assessment struct {
	Score     int    `json:"authenticity_score"`
	Level     Level  `json:"risk_level"`
	Flags     []Flag `json:"flags"`
	FlagCount int    `json:"flag_count"`
}

// HasCritical reports whether any flag is critical.
func (a Assessment) HasCritical() bool {
	for _, flag := range a.Flags {
		if flag.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Label values produced by frame classifiers.
const (
	LabelReal    = "real"
	LabelFake    = "fake"
	LabelUnknown = "unknown"
)

// MLSignal is the aggregated frame-classifier verdict fed into scoring.
type MLSignal struct {
	Label      string               `json:"label"`
	Confidence float64              `json:"confidence"`
	PerFrame   []map[string]float64 `json:"per_frame,omitempty"`
}

// IsFake reports whether the signal carries a fake verdict.
func (s *MLSignal) IsFake() bool {
	return s != nil && strings.EqualFold(s.Label, LabelFake)
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// seal clamps the score, derives the level, and fixes the flag count.
func seal(score int, flags []Flag) Assessment {
	if flags == nil {
		flags = []Flag{}
	}
	score = clampScore(score)
	return Assessment{
		Score:     score,
		Level:     LevelFor(score),
		Flags:     flags,
		FlagCount: len(flags),
	}
}
