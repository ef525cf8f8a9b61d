package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"truthx/internal/logging"
	"truthx/internal/risk"
	"truthx/internal/services/llm"
)

// TextClassifier estimates whether text was machine generated.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (TextResult, error)
}

// StubTextClassifier reports a fixed low-confidence real verdict.
type StubTextClassifier struct{}

// ClassifyText implements TextClassifier.
func (StubTextClassifier) ClassifyText(context.Context, string) (TextResult, error) {
	return TextResult{Label: StubLabel, Confidence: StubConfidence}, nil
}

// LabelHuman is the text classifier's authentic verdict.
const LabelHuman = "human"

const maxPromptRunes = 8000

const textClassificationPrompt = `You detect machine-generated text.
Classify the user's text as "ai-generated" or "human".
Respond with JSON only, in the form:
{"label":"ai-generated"|"human","ai_probability":<0..1>,"confidence":<0..1>}
ai_probability is the probability the text was machine generated.
confidence is your confidence in the label.`

// Completer is the subset of the llm client the classifier needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// LLMTextClassifier asks a chat model for a JSON verdict.
type LLMTextClassifier struct {
	client Completer
}

// NewLLMTextClassifier wraps client.
func NewLLMTextClassifier(client Completer) *LLMTextClassifier {
	return &LLMTextClassifier{client: client}
}

// ClassifyText implements TextClassifier.
func (c *LLMTextClassifier) ClassifyText(ctx context.Context, text string) (TextResult, error) {
	text = truncateRunes(strings.TrimSpace(text), maxPromptRunes)
	if text == "" {
		return TextResult{}, errors.New("text classifier: empty text")
	}
	content, err := c.client.CompleteJSON(ctx, textClassificationPrompt, text)
	if err != nil {
		return TextResult{}, err
	}
	var verdict struct {
		Label         string   `json:"label"`
		AIProbability *float64 `json:"ai_probability"`
		Confidence    *float64 `json:"confidence"`
	}
	if err := llm.DecodeJSON(content, &verdict); err != nil {
		return TextResult{}, fmt.Errorf("text classifier: parse verdict: %w", err)
	}
	if verdict.AIProbability == nil {
		return TextResult{}, errors.New("text classifier: verdict missing ai_probability")
	}

	p := clamp01(*verdict.AIProbability)
	label := normalizeTextLabel(verdict.Label, p)
	confidence := p
	if label == LabelHuman {
		confidence = 1 - p
	}
	if verdict.Confidence != nil {
		confidence = clamp01(*verdict.Confidence)
	}
	return TextResult{Label: label, Confidence: confidence, AIProbability: p, Model: c.client.Model()}, nil
}

func normalizeTextLabel(label string, p float64) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case risk.LabelAIGenerated, "ai", "ai_generated", "machine":
		return risk.LabelAIGenerated
	case LabelHuman, "human-written", "real":
		return LabelHuman
	}
	if p >= 0.5 {
		return risk.LabelAIGenerated
	}
	return LabelHuman
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// SafeClassifyText calls classifier and converts errors and panics into an
// unknown verdict carrying the message.
func SafeClassifyText(ctx context.Context, classifier TextClassifier, text string, logger *slog.Logger) (result TextResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedText(fmt.Errorf("text classifier panic: %v", r), logger)
		}
	}()
	if classifier == nil {
		return failedText(errors.New("text classifier not configured"), logger)
	}
	res, err := classifier.ClassifyText(ctx, text)
	if err != nil {
		return failedText(err, logger)
	}
	return res
}

func failedText(err error, logger *slog.Logger) TextResult {
	logging.ErrorWithContext(logger, "text classification failed", "text_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check llm.api_key and model availability"),
	)
	return TextResult{Label: risk.LabelUnknown, Error: err.Error()}
}
