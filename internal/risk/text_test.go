package risk_test

import (
	"testing"

	"truthx/internal/risk"
)

func TestAssessText(t *testing.T) {
	tests := []struct {
		name         string
		signal       risk.TextSignal
		wantScore    int
		wantLevel    risk.Level
		wantSeverity risk.Severity
	}{
		{"human", risk.TextSignal{Label: "human", AIProbability: 0.25}, 75, risk.LevelLow, ""},
		{"ai high", risk.TextSignal{Label: "ai-generated", AIProbability: 0.75}, 25, risk.LevelHigh, risk.SeverityHigh},
		{"ai critical", risk.TextSignal{Label: "ai-generated", AIProbability: 0.875}, 12, risk.LevelHigh, risk.SeverityCritical},
		{"out of range", risk.TextSignal{Label: "human", AIProbability: -2}, 100, risk.LevelLow, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := risk.NewScorer().AssessText(tt.signal)
			if got.Score != tt.wantScore || got.Level != tt.wantLevel {
				t.Fatalf("got %d %s, want %d %s", got.Score, got.Level, tt.wantScore, tt.wantLevel)
			}
			if tt.wantSeverity == "" {
				if got.FlagCount != 0 {
					t.Fatalf("expected no flags, got %+v", got.Flags)
				}
				return
			}
			if got.FlagCount != 1 || got.Flags[0].Severity != tt.wantSeverity {
				t.Fatalf("unexpected flags %+v", got.Flags)
			}
		})
	}
}
