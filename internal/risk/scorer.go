package risk

import (
	"fmt"
	"math"
	"strings"

	"truthx/internal/metadata"
)

// Rule penalties.
const (
	PenaltyReencoded     = 10
	PenaltyUnusualCodec  = 5
	PenaltyAITool        = 40
	PenaltyStrippedTags  = 10
	PenaltyLowBitrate    = 10
	MaxMLPenalty         = 60
	criticalMLConfidence = 0.7
)

const (
	lowBitrateMinWidth = 1920
	lowBitrateKbps     = 2000
)

var (
	reencodeSignatures = []string{"lavf", "handbrake", "obs", "x264", "x265"}
	commonCodecs       = map[string]struct{}{
		"h264": {}, "hevc": {}, "h265": {}, "vp9": {}, "vp8": {}, "av1": {}, "mpeg4": {},
	}
	aiToolSignatures = []string{"deepfake", "faceswap", "synthesia", "d-id", "heygen"}
)

// Scorer applies the metadata rule table. The zero value is ready to use.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates metadata-only rules.
func (s *Scorer) Score(meta metadata.Metadata) Assessment {
	return s.Assess(meta, nil)
}

// Assess evaluates the metadata rules and, when ml carries a fake verdict,
// appends the classifier flag last.
func (s *Scorer) Assess(meta metadata.Metadata, ml *MLSignal) Assessment {
	score := 100
	var flags []Flag
	add := func(flag Flag, penalty int) {
		flags = append(flags, flag)
		score -= penalty
	}

	encoder := meta.Tags.Get(metadata.TagEncoder)
	encoderLower := strings.ToLower(encoder)
	if containsAny(encoderLower, reencodeSignatures) != "" {
		add(Flag{Label: "Re-encoded", Detail: "Encoder: " + encoder, Severity: SeverityMedium}, PenaltyReencoded)
	}

	if codec := strings.ToLower(meta.CodecShort()); codec != "" && codec != metadata.Unknown {
		if _, ok := commonCodecs[codec]; !ok {
			detail := meta.Video.Codec
			if detail == "" || detail == metadata.Unknown {
				detail = codec
			}
			add(Flag{Label: "Unusual codec", Detail: detail, Severity: SeverityLow}, PenaltyUnusualCodec)
		}
	}

	for _, field := range []string{encoderLower, strings.ToLower(meta.Tags.Get(metadata.TagComment))} {
		if term := containsAny(field, aiToolSignatures); term != "" {
			add(Flag{Label: "AI Tool Detected", Detail: fmt.Sprintf("Metadata: '%s'", term), Severity: SeverityCritical}, PenaltyAITool)
			break
		}
	}

	if len(meta.Tags) == 0 {
		add(Flag{Label: "Stripped metadata", Detail: "No tags found", Severity: SeverityMedium}, PenaltyStrippedTags)
	}

	if bitrate := meta.File.BitrateKbps; meta.Width() >= lowBitrateMinWidth && bitrate > 0 && bitrate < lowBitrateKbps {
		add(Flag{Label: "Low bitrate", Detail: "Possible re-encode", Severity: SeverityMedium}, PenaltyLowBitrate)
	}

	if ml.IsFake() {
		confidence := clampUnit(ml.Confidence)
		severity := SeverityHigh
		if confidence > criticalMLConfidence {
			severity = SeverityCritical
		}
		add(Flag{
			Label:    "Deepfake Detected (ML)",
			Detail:   fmt.Sprintf("Model confidence: %.1f%%", confidence*100),
			Severity: severity,
		}, int(math.Floor(confidence*MaxMLPenalty)))
	}

	return seal(score, flags)
}

// containsAny returns the first term found in value, or "".
func containsAny(value string, terms []string) string {
	if value == "" {
		return ""
	}
	for _, term := range terms {
		if strings.Contains(value, term) {
			return term
		}
	}
	return ""
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
