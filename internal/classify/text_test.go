package classify_test

import (
	"context"
	"errors"
	"testing"

	"truthx/internal/classify"
	"truthx/internal/logging"
)

type fakeCompleter struct {
	content string
	err     error
	prompt  string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _, user string) (string, error) {
	f.prompt = user
	return f.content, f.err
}

func (f *fakeCompleter) Model() string { return "demo-model" }

func TestLLMTextClassifier(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantLabel      string
		wantProb       float64
		wantConfidence float64
		wantErr        bool
	}{
		{"ai verdict", `{"label":"ai-generated","ai_probability":0.9,"confidence":0.85}`, "ai-generated", 0.9, 0.85, false},
		{"human without confidence", `{"label":"Human","ai_probability":0.25}`, "human", 0.25, 0.75, false},
		{"fenced and clamped", "```json\n{\"label\":\"AI\",\"ai_probability\":1.5}\n```", "ai-generated", 1, 1, false},
		{"label inferred", `{"label":"maybe","ai_probability":0.75}`, "ai-generated", 0.75, 0.75, false},
		{"missing probability", `{"label":"human"}`, "", 0, 0, true},
		{"not json", `I cannot help with that`, "", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{content: tt.content}
			got, err := classify.NewLLMTextClassifier(completer).ClassifyText(context.Background(), "  some text  ")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClassifyText: %v", err)
			}
			if got.Label != tt.wantLabel || got.AIProbability != tt.wantProb || got.Confidence != tt.wantConfidence {
				t.Fatalf("got %+v", got)
			}
			if got.Model != "demo-model" || completer.prompt != "some text" {
				t.Fatalf("unexpected model %q or prompt %q", got.Model, completer.prompt)
			}
		})
	}
}

func TestLLMTextClassifierRejectsEmptyText(t *testing.T) {
	if _, err := classify.NewLLMTextClassifier(&fakeCompleter{}).ClassifyText(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSafeClassifyText(t *testing.T) {
	stub := classify.SafeClassifyText(context.Background(), classify.StubTextClassifier{}, "hello", nil)
	if stub.Label != "real" || stub.Confidence != 0.05 {
		t.Fatalf("unexpected stub result %+v", stub)
	}

	failing := classify.NewLLMTextClassifier(&fakeCompleter{err: errors.New("upstream down")})
	got := classify.SafeClassifyText(context.Background(), failing, "hello", logging.NewNop())
	if got.Label != "unknown" || got.Confidence != 0 || got.Error != "upstream down" {
		t.Fatalf("unexpected failure result %+v", got)
	}
}

func TestSafeDetectAudio(t *testing.T) {
	got := classify.SafeDetectAudio(context.Background(), classify.StubAudioDetector{}, "/tmp/clip.mp4", nil)
	if got.FakeProbability != nil || got.Error != "not implemented" {
		t.Fatalf("unexpected stub result %+v", got)
	}
	got = classify.SafeDetectAudio(context.Background(), nil, "/tmp/clip.mp4", nil)
	if got.Error == "" {
		t.Fatal("expected error for nil detector")
	}
}
