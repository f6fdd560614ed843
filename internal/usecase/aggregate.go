package usecase

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Default request shaping for set evaluations.
const defaultDifficulty = "中等"

var defaultKeyPoints = []string{
	"理解问题核心",
	"展现AI产品思维",
	"提供具体可行的解决方案",
	"考虑技术与商业的平衡",
}

// SetInput describes one question-set evaluation.
type SetInput struct {
	StageType        string
	StageTitle       string
	QuestionSetIndex int
	Questions        []string
	Answers          []string
	// EvaluationID is preserved when the set was enqueued asynchronously;
	// empty means generate one.
	EvaluationID string
	// OnResult, when set, receives each evaluation as it settles so callers
	// can persist partial progress. Called from worker goroutines.
	OnResult func(index int, ev domain.IndividualEvaluation)
}

// SetEvaluator fans out per-question evaluations and aggregates them into a
// report. It never fails a whole set because one question failed.
type SetEvaluator struct {
	evaluator *QuestionEvaluator
	questions domain.QuestionRepository
	prompts   *PromptBuilder
	norm      *Normalizer
	ai        domain.AIClient
	aiEnabled bool
	scorer    SubScorer
	maxTokens int
}

func NewSetEvaluator(evaluator *QuestionEvaluator, questions domain.QuestionRepository, prompts *PromptBuilder, norm *Normalizer, ai domain.AIClient, aiEnabled bool, scorer SubScorer, maxTokens int) *SetEvaluator {
	return &SetEvaluator{
		evaluator: evaluator,
		questions: questions,
		prompts:   prompts,
		norm:      norm,
		ai:        ai,
		aiEnabled: aiEnabled,
		scorer:    scorer,
		maxTokens: maxTokens,
	}
}

// BuildRequest shapes the evaluation request for one question of a set.
// Hints come from the question bank when present; lookup failures fall back
// to placeholder guidance and never abort the evaluation. A missing answer
// becomes "未回答" (which the guard then rejects as too short).
func (s *SetEvaluator) BuildRequest(ctx domain.Context, in SetInput, index int) domain.EvaluationRequest {
	answer := "未回答"
	if index < len(in.Answers) && in.Answers[index] != "" {
		answer = in.Answers[index]
	}

	questionAnalysis := DefaultQuestionAnalysis
	answerFramework := DefaultAnswerFramework
	if s.questions != nil {
		if hint, err := s.questions.FindHint(ctx, in.Questions[index]); err == nil {
			if hint.ExpectedAnswer != "" {
				questionAnalysis = hint.ExpectedAnswer
			}
			if hint.AnswerTips != "" {
				answerFramework = hint.AnswerTips
			}
		}
	}

	return domain.EvaluationRequest{
		Question:         in.Questions[index],
		UserAnswer:       answer,
		Category:         in.StageType,
		Difficulty:       defaultDifficulty,
		KeyPoints:        defaultKeyPoints,
		StageType:        in.StageType,
		QuestionAnalysis: questionAnalysis,
		AnswerFramework:  answerFramework,
	}
}

// EvaluateSet runs the full pipeline for a question set: settle-all fan-out,
// hard barrier, one summary call (or the local fallback), profile synthesis
// and report assembly. Output order always matches input order.
func (s *SetEvaluator) EvaluateSet(ctx domain.Context, in SetInput) (domain.AggregatedReport, error) {
	if len(in.Questions) == 0 {
		return domain.AggregatedReport{}, fmt.Errorf("%w: op=aggregate: empty question set", domain.ErrInvalidArgument)
	}

	evals := make([]domain.IndividualEvaluation, len(in.Questions))
	var wg sync.WaitGroup
	for i := range in.Questions {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					// Second-tier fallback: even a panicking evaluator
					// yields a complete slot.
					slog.Error("question evaluation panicked",
						slog.Int("question_index", index),
						slog.Any("panic", r))
					observability.RecordFallback("aggregate")
					req := s.BuildRequest(ctx, in, index)
					evals[index] = FallbackEvaluation(req, fmt.Sprintf("评估过程异常: %v", r))
					if in.OnResult != nil {
						in.OnResult(index, evals[index])
					}
				}
			}()
			req := s.BuildRequest(ctx, in, index)
			ev, _ := s.evaluator.Evaluate(ctx, req)
			evals[index] = ev
			if in.OnResult != nil {
				in.OnResult(index, ev)
			}
		}(i)
	}
	wg.Wait()

	stage := domain.StageInfo{
		StageType:        in.StageType,
		StageTitle:       in.StageTitle,
		QuestionSetIndex: in.QuestionSetIndex,
		QuestionCount:    len(in.Questions),
	}

	summary := s.summarize(ctx, evals, stage)

	evaluationID := in.EvaluationID
	if evaluationID == "" {
		evaluationID = NewEvaluationID()
	}

	report := domain.AggregatedReport{
		EvaluationID:          evaluationID,
		StageInfo:             stage,
		IndividualEvaluations: evals,
		OverallSummary:        summary,
		CompetencyProfile:     BuildCompetencyProfile(evals, s.scorer),
		CreatedAt:             time.Now().UTC(),
	}
	slog.Info("aggregated report assembled",
		slog.String("evaluation_id", report.EvaluationID),
		slog.String("overall_level", summary.OverallLevel),
		slog.Int("question_count", len(evals)))
	return report, nil
}

// summarize issues the single cross-question model call, falling back to the
// deterministic local summary on any failure or when no provider is
// configured.
func (s *SetEvaluator) summarize(ctx domain.Context, evals []domain.IndividualEvaluation, stage domain.StageInfo) domain.OverallSummary {
	if !s.aiEnabled {
		slog.Warn("no AI provider configured, using local summary")
		observability.RecordFallback("summary")
		return FallbackSummary(evals, stage)
	}

	system, user := s.prompts.BuildSummary(evals, stage)
	raw, err := s.ai.ChatJSON(ctx, system, user, s.maxTokens)
	if err != nil {
		slog.Warn("summary call failed, using local summary", slog.Any("error", err))
		observability.RecordFallback("summary")
		return FallbackSummary(evals, stage)
	}
	summary, err := s.norm.ParseSummary(raw)
	if err != nil {
		slog.Warn("summary output unusable, using local summary", slog.Any("error", err))
		observability.RecordFallback("summary")
		return FallbackSummary(evals, stage)
	}
	return summary
}

// NewEvaluationID mints a new report id, keeping the original eval_ prefix.
func NewEvaluationID() string {
	return "eval_" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}
