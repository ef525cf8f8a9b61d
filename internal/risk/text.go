package risk

import (
	"fmt"
	"math"
	"strings"
)

const criticalTextProbability = 0.8

// LabelAIGenerated is the text classifier's synthetic verdict.
const LabelAIGenerated = "ai-generated"

// TextSignal is the text classifier verdict used for text-only requests.
type TextSignal struct {
	Label         string
	AIProbability float64
}

// AssessText scores a text-only request from the classifier's AI probability.
func (s *Scorer) AssessText(signal TextSignal) Assessment {
	p := clampUnit(signal.AIProbability)
	score := int(math.Floor((1 - p) * 100))
	var flags []Flag
	if strings.EqualFold(signal.Label, LabelAIGenerated) {
		severity := SeverityHigh
		if p > criticalTextProbability {
			severity = SeverityCritical
		}
		flags = append(flags, Flag{
			Label:    "AI-Generated Text Detected",
			Detail:   fmt.Sprintf("AI probability: %.1f%%", p*100),
			Severity: severity,
		})
	}
	return seal(score, flags)
}
