package usecase

import (
	"fmt"

	"log/slog"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Suggest generates personalized growth suggestions from competency trends.
// One model call, no retry; any failure or unusable output substitutes the
// deterministic trend-based fallback, so the result is never empty for a
// non-trivial trend set.
func (s *SetEvaluator) Suggest(ctx domain.Context, trends []domain.CompetencyTrend) []domain.GrowthSuggestion {
	if !s.aiEnabled {
		slog.Warn("no AI provider configured, using local suggestions")
		observability.RecordFallback("suggestions")
		return FallbackSuggestions(trends)
	}

	system, user := s.prompts.BuildSuggestion(trends)
	raw, err := s.ai.ChatJSON(ctx, system, user, s.maxTokens)
	if err != nil {
		slog.Warn("suggestion call failed, using local suggestions", slog.Any("error", err))
		observability.RecordFallback("suggestions")
		return FallbackSuggestions(trends)
	}
	suggestions, err := s.norm.ParseSuggestions(raw)
	if err != nil {
		slog.Warn("suggestion output unusable, using local suggestions", slog.Any("error", err))
		observability.RecordFallback("suggestions")
		return FallbackSuggestions(trends)
	}
	return suggestions
}

// Suggestions is the service entrypoint for the growth-suggestion endpoint.
func (s *Service) Suggestions(ctx domain.Context, trends []domain.CompetencyTrend) ([]domain.GrowthSuggestion, error) {
	if len(trends) == 0 {
		return nil, fmt.Errorf("%w: op=service.suggestions: empty competency data", domain.ErrInvalidArgument)
	}
	return s.sets.Suggest(ctx, trends), nil
}
