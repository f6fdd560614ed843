package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/zaizaiboom/futureu913/internal/adapter/ai"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Normalizer turns raw model text into validated domain structures. Cleaning
// is delegated to ai.ResponseCleaner; this layer owns schema validation.
type Normalizer struct {
	cleaner *ai.ResponseCleaner
}

func NewNormalizer() *Normalizer {
	return &Normalizer{cleaner: ai.NewResponseCleaner()}
}

// rawIndividual mirrors IndividualEvaluation but keeps required-field
// presence detectable via pointers.
type rawIndividual struct {
	PreliminaryAnalysis *domain.PreliminaryAnalysis `json:"preliminaryAnalysis"`
	PerformanceLevel    *string                     `json:"performanceLevel"`
	Summary             *string                     `json:"summary"`
	Strengths           []domain.Strength           `json:"strengths"`
	Improvements        []domain.Improvement        `json:"improvements"`
	FollowUpQuestion    *string                     `json:"followUpQuestion"`
	CompetencyScores    *domain.CompetencyScores    `json:"competencyScores"`
	ExpertGuidance      *domain.ExpertGuidance      `json:"expertGuidance"`
}

// ParseIndividual cleans, parses and validates a per-question model reply.
// Unparseable text maps to ErrMalformedOutput; parseable text missing a
// required field maps to ErrMissingFields. Both take the caller down the
// fallback path.
func (n *Normalizer) ParseIndividual(raw string) (domain.IndividualEvaluation, error) {
	cleaned, err := n.cleaner.CleanAndValidateJSON(raw)
	if err != nil {
		return domain.IndividualEvaluation{}, fmt.Errorf("%w: op=normalize.individual: %v", domain.ErrMalformedOutput, err)
	}

	var r rawIndividual
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return domain.IndividualEvaluation{}, fmt.Errorf("%w: op=normalize.individual decode: %v", domain.ErrMalformedOutput, err)
	}

	for field, present := range map[string]bool{
		"preliminaryAnalysis": r.PreliminaryAnalysis != nil,
		"performanceLevel":    r.PerformanceLevel != nil,
		"summary":             r.Summary != nil,
		"followUpQuestion":    r.FollowUpQuestion != nil,
	} {
		if !present {
			return domain.IndividualEvaluation{}, fmt.Errorf("%w: op=normalize.individual field=%s", domain.ErrMissingFields, field)
		}
	}

	level := domain.PerformanceLevel(*r.PerformanceLevel)
	if !domain.ValidLevel(level) {
		return domain.IndividualEvaluation{}, fmt.Errorf("%w: op=normalize.individual level=%q", domain.ErrMissingFields, level)
	}

	ev := domain.IndividualEvaluation{
		PreliminaryAnalysis: *r.PreliminaryAnalysis,
		PerformanceLevel:    level,
		Summary:             *r.Summary,
		Strengths:           r.Strengths,
		Improvements:        r.Improvements,
		FollowUpQuestion:    *r.FollowUpQuestion,
	}
	if r.CompetencyScores != nil {
		if err := validateScores(*r.CompetencyScores); err != nil {
			return domain.IndividualEvaluation{}, err
		}
		ev.CompetencyScores = *r.CompetencyScores
	}
	if r.ExpertGuidance != nil {
		ev.ExpertGuidance = *r.ExpertGuidance
	}
	if ev.Strengths == nil {
		ev.Strengths = []domain.Strength{}
	}
	if ev.Improvements == nil {
		ev.Improvements = []domain.Improvement{}
	}
	return ev, nil
}

func validateScores(s domain.CompetencyScores) error {
	for name, v := range map[string]int{
		"内容质量": s.ContentQuality,
		"逻辑思维": s.LogicalThinking,
		"表达能力": s.Communication,
		"创新思维": s.CreativeThinking,
		"问题分析": s.ProblemAnalysis,
	} {
		if v < 0 || v > 5 {
			return fmt.Errorf("%w: op=normalize.scores dim=%s value=%d", domain.ErrMissingFields, name, v)
		}
	}
	return nil
}

type rawSummary struct {
	OverallLevel *string              `json:"overallLevel"`
	Summary      *string              `json:"summary"`
	Strengths    []domain.Strength    `json:"strengths"`
	Improvements []domain.Improvement `json:"improvements"`
}

// ParseSummary cleans, parses and validates a cross-question summary reply.
func (n *Normalizer) ParseSummary(raw string) (domain.OverallSummary, error) {
	cleaned, err := n.cleaner.CleanAndValidateJSON(raw)
	if err != nil {
		return domain.OverallSummary{}, fmt.Errorf("%w: op=normalize.summary: %v", domain.ErrMalformedOutput, err)
	}

	var r rawSummary
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return domain.OverallSummary{}, fmt.Errorf("%w: op=normalize.summary decode: %v", domain.ErrMalformedOutput, err)
	}
	if r.OverallLevel == nil || *r.OverallLevel == "" {
		return domain.OverallSummary{}, fmt.Errorf("%w: op=normalize.summary field=overallLevel", domain.ErrMissingFields)
	}
	if r.Summary == nil || *r.Summary == "" {
		return domain.OverallSummary{}, fmt.Errorf("%w: op=normalize.summary field=summary", domain.ErrMissingFields)
	}

	return domain.OverallSummary{
		OverallLevel: *r.OverallLevel,
		Summary:      *r.Summary,
		Strengths:    r.Strengths,
		Improvements: r.Improvements,
	}, nil
}

type rawSuggestions struct {
	Suggestions []domain.GrowthSuggestion `json:"suggestions"`
}

// ParseSuggestions cleans, parses and validates a growth-suggestion reply.
// The reply must carry a non-empty suggestions array whose entries have a
// title and description; an unknown type is normalized to "info".
func (n *Normalizer) ParseSuggestions(raw string) ([]domain.GrowthSuggestion, error) {
	cleaned, err := n.cleaner.CleanAndValidateJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: op=normalize.suggestions: %v", domain.ErrMalformedOutput, err)
	}

	var r rawSuggestions
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("%w: op=normalize.suggestions decode: %v", domain.ErrMalformedOutput, err)
	}
	if len(r.Suggestions) == 0 {
		return nil, fmt.Errorf("%w: op=normalize.suggestions field=suggestions", domain.ErrMissingFields)
	}
	for i := range r.Suggestions {
		s := &r.Suggestions[i]
		if s.Title == "" || s.Description == "" {
			return nil, fmt.Errorf("%w: op=normalize.suggestions index=%d", domain.ErrMissingFields, i)
		}
		switch s.Type {
		case domain.SuggestionImprovement, domain.SuggestionStrength, domain.SuggestionInfo:
		default:
			s.Type = domain.SuggestionInfo
		}
	}
	return r.Suggestions, nil
}
