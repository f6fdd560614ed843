// Package usecase implements the evaluation pipeline: guard, prompt
// building, model invocation, normalization, fallback synthesis and
// cross-question aggregation.
package usecase

import (
	"fmt"

	"log/slog"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// QuestionEvaluator runs the per-question pipeline. Every path returns a
// structurally complete evaluation; errors never propagate past this type.
type QuestionEvaluator struct {
	ai        domain.AIClient
	prompts   *PromptBuilder
	norm      *Normalizer
	maxTokens int
}

func NewQuestionEvaluator(ai domain.AIClient, prompts *PromptBuilder, norm *Normalizer, maxTokens int) *QuestionEvaluator {
	return &QuestionEvaluator{ai: ai, prompts: prompts, norm: norm, maxTokens: maxTokens}
}

// Evaluate applies GUARD -> LLM -> NORMALIZE with fallback substitution.
// A guard rejection short-circuits before any network call and is also
// returned so HTTP callers can surface it as a 422.
func (e *QuestionEvaluator) Evaluate(ctx domain.Context, req domain.EvaluationRequest) (domain.IndividualEvaluation, *domain.PenaltyRejection) {
	if rejection := DetectLowQualityAnswer(req.UserAnswer, req.Question); rejection != nil {
		slog.Info("answer rejected by guard",
			slog.String("reason", rejection.Reason),
			slog.Int("answer_len", len([]rune(req.UserAnswer))))
		ev := PenaltyEvaluation(req, *rejection)
		observability.RecordPerformanceLevel(string(ev.PerformanceLevel))
		return ev, rejection
	}

	ev, err := e.evaluateOnce(ctx, req)
	if err != nil {
		slog.Warn("question evaluation failed, substituting fallback",
			slog.Any("error", err),
			slog.String("stage_type", req.StageType))
		observability.RecordFallback("question")
		ev = FallbackEvaluation(req, err.Error())
	}
	observability.RecordPerformanceLevel(string(ev.PerformanceLevel))
	return ev, nil
}

func (e *QuestionEvaluator) evaluateOnce(ctx domain.Context, req domain.EvaluationRequest) (domain.IndividualEvaluation, error) {
	system, user := e.prompts.BuildEvaluation(req)
	raw, err := e.ai.ChatJSON(ctx, system, user, e.maxTokens)
	if err != nil {
		return domain.IndividualEvaluation{}, fmt.Errorf("op=evaluate.invoke: %w", err)
	}
	ev, err := e.norm.ParseIndividual(raw)
	if err != nil {
		return domain.IndividualEvaluation{}, fmt.Errorf("op=evaluate.normalize: %w", err)
	}
	// Guidance echoes the material the prompt was built from; the model's
	// echo is not trusted for this.
	qa := req.QuestionAnalysis
	if qa == "" {
		qa = DefaultQuestionAnalysis
	}
	af := req.AnswerFramework
	if af == "" {
		af = DefaultAnswerFramework
	}
	ev.ExpertGuidance = domain.ExpertGuidance{QuestionAnalysis: qa, AnswerFramework: af}
	return ev, nil
}
