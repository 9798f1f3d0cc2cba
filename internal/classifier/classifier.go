// backend/internal/classifier/classifier.go
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bubblesight/backend/internal/inference"
	"github.com/sirupsen/logrus"
)

const (
	// FallbackCategory is substituted whenever model output cannot be trusted
	FallbackCategory = "Uncategorized"

	// Generation bound; the model is asked for a two-field JSON object
	defaultMaxTokens = 100

	// Prompt input bound. Arbitrarily long or adversarial content must not
	// blow up the completion request; the stored record keeps the full text.
	maxPromptContent = 4000
)

// Result is a classification outcome. It is valid by construction: category
// is always non-empty and sentiment always lies in [-1, 1].
type Result struct {
	Category  string
	Sentiment float64
}

func fallback() Result {
	return Result{Category: FallbackCategory, Sentiment: 0}
}

type Service struct {
	client    *inference.Client
	maxTokens int
	logger    *logrus.Logger
}

func NewService(client *inference.Client, maxTokens int, logger *logrus.Logger) *Service {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Service{
		client:    client,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Classify derives a short category and a sentiment score from raw feedback
// text. It never fails outward: an unreachable model, malformed output or
// out-of-contract fields all resolve to the fallback result, logged only.
func (s *Service) Classify(ctx context.Context, text string) Result {
	prompt := buildPrompt(text)

	response, err := s.client.Run(ctx, prompt, s.maxTokens)
	if err != nil {
		s.logger.WithError(err).Warn("Completion call failed, using fallback classification")
		return fallback()
	}

	result := parseResponse(response)
	if result.Category == FallbackCategory && result.Sentiment == 0 {
		s.logger.WithField("response", response).Debug("Model response resolved to fallback")
	}
	return result
}

func buildPrompt(text string) string {
	if len(text) > maxPromptContent {
		text = text[:maxPromptContent]
	}

	return fmt.Sprintf(`Analyze this customer feedback and respond with ONLY a JSON object (no markdown, no code blocks, just raw JSON):
{
  "category": "A 1-3 word category describing the main pain point or topic",
  "sentiment": A number between -1.0 (very negative) and 1.0 (very positive)
}

Feedback: "%s"`, text)
}

// parseResponse turns best-effort model text into a valid Result. Models
// routinely wrap JSON in prose or code fences, so the widest brace-delimited
// window is extracted before parsing.
func parseResponse(response string) Result {
	raw := extractJSON(response)
	if raw == "" {
		return fallback()
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fallback()
	}

	result := fallback()

	if category, ok := parsed["category"].(string); ok && strings.TrimSpace(category) != "" {
		result.Category = strings.TrimSpace(category)
	}

	// JSON numbers decode as float64; anything else stays at 0
	if sentiment, ok := parsed["sentiment"].(float64); ok {
		result.Sentiment = clamp(sentiment, -1.0, 1.0)
	}

	return result
}

// extractJSON returns the substring from the first '{' to the last '}' in
// the response, or "" when no such window exists.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return response[start : end+1]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
