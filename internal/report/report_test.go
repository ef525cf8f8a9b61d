package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"truthx/internal/classify"
	"truthx/internal/drift"
	"truthx/internal/metadata"
	"truthx/internal/report"
	"truthx/internal/risk"
	"truthx/internal/search"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func TestAssembleDefaultsWithoutAssessment(t *testing.T) {
	rep := report.Assemble(report.Inputs{Now: fixedNow})
	if rep.Score != report.DefaultScore || rep.RiskLevel != risk.LevelLow {
		t.Fatalf("expected defaults 85/low, got %d/%s", rep.Score, rep.RiskLevel)
	}
	if rep.Summary != "Analysis complete" {
		t.Fatalf("unexpected summary %q", rep.Summary)
	}
	if rep.RelatedArticles == nil || rep.Drift == nil {
		t.Fatal("expected non-nil slices")
	}
	if rep.CombinedConfidence != nil || rep.OverallLabel != "" {
		t.Fatalf("expected no combined confidence, got %v %q", rep.CombinedConfidence, rep.OverallLabel)
	}
	if rep.ModelsUsed != report.ModelsStub {
		t.Fatalf("expected stub models, got %q", rep.ModelsUsed)
	}
	if !rep.AnalyzedAt.Equal(fixedNow) {
		t.Fatalf("unexpected analyzed_at %v", rep.AnalyzedAt)
	}
}

func TestAssembleCopiesAssessment(t *testing.T) {
	assessment := risk.NewScorer().Score(metadata.Empty("clip.mp4"))
	rep := report.Assemble(report.Inputs{Risk: &assessment, Now: fixedNow})
	if rep.Score != assessment.Score || rep.RiskLevel != assessment.Level {
		t.Fatalf("expected %d/%s, got %d/%s", assessment.Score, assessment.Level, rep.Score, rep.RiskLevel)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		video    *classify.FrameResult
		text     *classify.TextResult
		articles int
		want     string
	}{
		{name: "empty", want: "Analysis complete"},
		{
			name:  "stub video",
			video: &classify.FrameResult{Label: "real", Confidence: 0.05},
			want:  "Video: real (5% confidence)",
		},
		{
			name:     "all parts",
			video:    &classify.FrameResult{Label: "fake", Confidence: 0.914},
			text:     &classify.TextResult{Label: "ai-generated", Confidence: 0.8},
			articles: 2,
			want:     "Video: fake (91% confidence) | Text: ai-generated (80% confidence) | 2 related article(s) found",
		},
		{
			name:     "articles only",
			articles: 1,
			want:     "1 related article(s) found",
		},
		{
			name: "missing label",
			text: &classify.TextResult{},
			want: "Text: unknown (0% confidence)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := report.Summarize(tc.video, tc.text, tc.articles); got != tc.want {
				t.Fatalf("Summarize = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCombineWeightsPresentResults(t *testing.T) {
	video := &classify.FrameResult{Label: "fake", Confidence: 0.8}
	text := &classify.TextResult{Label: "human", Confidence: 0.2}

	got, ok := report.Combine(video, text)
	if !ok {
		t.Fatal("expected combined confidence")
	}
	// (0.8*0.45 + 0.2*0.25) / 0.70
	if got != 0.5857 {
		t.Fatalf("expected 0.5857, got %v", got)
	}

	only, ok := report.Combine(nil, text)
	if !ok || only != 0.2 {
		t.Fatalf("expected text-only 0.2, got %v (%v)", only, ok)
	}
	if _, ok := report.Combine(nil, nil); ok {
		t.Fatal("expected no combined confidence without results")
	}
}

func TestAssembleOverallLabel(t *testing.T) {
	rep := report.Assemble(report.Inputs{
		Video: &classify.FrameResult{Label: "fake", Confidence: 0.5},
		Audio: &classify.AudioResult{Error: "not implemented"},
		Now:   fixedNow,
	})
	if rep.CombinedConfidence == nil || *rep.CombinedConfidence != 0.5 {
		t.Fatalf("unexpected combined confidence %v", rep.CombinedConfidence)
	}
	if rep.OverallLabel != risk.LabelFake {
		t.Fatalf("expected fake at threshold, got %q", rep.OverallLabel)
	}

	rep = report.Assemble(report.Inputs{
		Video: &classify.FrameResult{Label: "real", Confidence: 0.05},
		Now:   fixedNow,
	})
	if rep.OverallLabel != risk.LabelReal {
		t.Fatalf("expected real, got %q", rep.OverallLabel)
	}
}

func TestHighRisk(t *testing.T) {
	high := risk.Assessment{Score: 20, Level: risk.LevelHigh}
	critical := risk.Assessment{
		Score: 60,
		Level: risk.LevelMedium,
		Flags: []risk.Flag{{Label: "AI tool", Severity: risk.SeverityCritical}},
	}
	medium := risk.Assessment{Score: 60, Level: risk.LevelMedium}

	if !report.Assemble(report.Inputs{Risk: &high}).HighRisk() {
		t.Fatal("expected high level to be high risk")
	}
	if !report.Assemble(report.Inputs{Risk: &critical}).HighRisk() {
		t.Fatal("expected critical flag to be high risk")
	}
	if report.Assemble(report.Inputs{Risk: &medium}).HighRisk() {
		t.Fatal("expected medium without critical flags to be quiet")
	}
}

func TestReportJSONShape(t *testing.T) {
	rep := report.Assemble(report.Inputs{
		RequestID: "req-9",
		Drift:     []drift.Point{{Offset: 0, Value: 88, Source: drift.SourceMeasured}},
		Articles: []search.Result{{
			Article:         search.Article{ID: "a1", Title: "Example"},
			SimilarityScore: 0.42,
		}},
		ModelsUsed: report.ModelsReal,
		Now:        fixedNow,
	})
	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded["metadata"]) != "{}" {
		t.Fatalf("expected empty metadata object, got %s", decoded["metadata"])
	}
	if string(decoded["video_analysis"]) != "null" || string(decoded["risk_assessment"]) != "null" {
		t.Fatalf("expected null pass-through fields, got %s / %s", decoded["video_analysis"], decoded["risk_assessment"])
	}
	if string(decoded["drift_data"]) != `[{"t":"0s","v":88}]` {
		t.Fatalf("unexpected drift_data %s", decoded["drift_data"])
	}
	if !strings.Contains(string(decoded["related_articles"]), `"similarity_score":0.42`) {
		t.Fatalf("unexpected related_articles %s", decoded["related_articles"])
	}
	for _, key := range []string{"summary", "analyzed_at", "score", "risk_level", "models_used", "request_id"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
}

func TestReportJSONIncludesMetadata(t *testing.T) {
	meta := metadata.Empty("clip.mp4")
	data, err := json.Marshal(report.Assemble(report.Inputs{Metadata: &meta, Now: fixedNow}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"file_name":"clip.mp4"`) {
		t.Fatalf("expected metadata in output, got %s", data)
	}
}
