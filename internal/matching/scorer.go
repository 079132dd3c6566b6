package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/ai"
	"github.com/recruiter-solutions/match-engine/internal/logger"
)

// Assessment is the structured outcome of scoring one candidate/listing pair.
type Assessment struct {
	Score     int
	Reason    string
	Suggested bool
}

// Degraded assessment reasons. These exact strings are part of the API
// contract: callers and the frontend rely on them to label degraded results.
const (
	ReasonUnableToCompute = "Unable to compute match"
	ReasonNotConfigured   = "AI matching not configured"

	degradedScore = 50
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Scorer scores candidate/listing pairs through a remote reasoning provider.
// A nil completer means no provider is configured; the scorer then always
// returns the "not configured" degraded assessment.
type Scorer struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

// NewScorer creates a Scorer. completer may be nil.
func NewScorer(completer ai.Completer, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		completer: completer,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Configured reports whether a reasoning provider is wired in.
func (s *Scorer) Configured() bool {
	return s != nil && s.completer != nil
}

// Score evaluates the pair and never fails: every provider problem degrades
// to a well-formed assessment with score 50.
func (s *Scorer) Score(ctx context.Context, candidateText, listingText string) Assessment {
	if !s.Configured() {
		return Assessment{Score: degradedScore, Reason: ReasonNotConfigured}
	}

	prompt := buildPrompt(candidateText, listingText)

	s.logger.Debug("match score request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.completer.Complete(ctx, prompt, "")
	if err != nil {
		if !errors.Is(err, ai.ErrUnavailable) {
			s.logger.Warn("match scoring failed", zap.Error(err))
		}
		return Assessment{Score: degradedScore, Reason: ReasonUnableToCompute}
	}

	s.logger.Debug("match score response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		s.logger.Warn("unparsable match score response", zap.Error(err))
		return Assessment{Score: degradedScore, Reason: ReasonUnableToCompute}
	}

	return assessment
}

func buildPrompt(candidateText, listingText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE}}\n\nJob:\n{{LISTING}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{CANDIDATE}}", candidateText)
	prompt = strings.ReplaceAll(prompt, "{{LISTING}}", listingText)
	return prompt
}

func parseAssessment(raw string) (Assessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return Assessment{}, fmt.Errorf("parse score response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return Assessment{}, errors.New("score response has no parseable score")
	}

	return Assessment{
		Score:     clampScore(int(math.Round(score))),
		Reason:    coerceString(data["reason"]),
		Suggested: coerceBool(data["suggested_for_you"]),
	}, nil
}

func clampScore(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// extractJSON strips markdown code-fence wrapping that models add despite
// being told not to.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
