package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

// orderedAI answers per-question prompts with a marker JSON and finishes
// earlier questions later, exercising the reordering barrier.
type orderedAI struct {
	mu sync.Mutex
}

func (f *orderedAI) ChatJSON(_ domain.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	if strings.Contains(systemPrompt, "面试总监") {
		return `{"overallLevel": "资深级", "summary": "整体表现稳定。"}`, nil
	}
	// Question text carries its own index marker.
	marker := ""
	for i := 0; i < 5; i++ {
		if strings.Contains(userPrompt, fmt.Sprintf("题目标记%d", i)) {
			marker = fmt.Sprintf("题目标记%d", i)
			// Earlier questions sleep longer so completion order inverts.
			time.Sleep(time.Duration(5-i) * 10 * time.Millisecond)
			break
		}
	}
	return fmt.Sprintf(`{
	  "preliminaryAnalysis": {"isValid": true, "reasoning": "ok"},
	  "performanceLevel": "制片级",
	  "summary": "%s",
	  "followUpQuestion": "f"
	}`, marker), nil
}

type fakeQuestionRepo struct {
	hints map[string]domain.QuestionHint
}

func (f *fakeQuestionRepo) FindHint(_ domain.Context, text string) (domain.QuestionHint, error) {
	if h, ok := f.hints[text]; ok {
		return h, nil
	}
	return domain.QuestionHint{}, domain.ErrNotFound
}

func (f *fakeQuestionRepo) UpsertHint(_ domain.Context, h domain.QuestionHint) error {
	if f.hints == nil {
		f.hints = map[string]domain.QuestionHint{}
	}
	f.hints[h.QuestionText] = h
	return nil
}

func newSetEvaluator(ai domain.AIClient, questions domain.QuestionRepository, aiEnabled bool) *usecase.SetEvaluator {
	prompts := usecase.NewPromptBuilder(nil, "test-model", 0)
	norm := usecase.NewNormalizer()
	evaluator := usecase.NewQuestionEvaluator(ai, prompts, norm, 2000)
	scorer := usecase.NewLevelBucketSubScorer(1)
	return usecase.NewSetEvaluator(evaluator, questions, prompts, norm, ai, aiEnabled, scorer, 2000)
}

func longAnswer(i int) string {
	return fmt.Sprintf("针对这道题我的思考是：模型能力与用户价值需要持续对齐，容错性、成本和数据可得性决定方案选择（第%d题）。", i)
}

func TestEvaluateSet_PreservesInputOrder(t *testing.T) {
	t.Parallel()
	s := newSetEvaluator(&orderedAI{}, &fakeQuestionRepo{}, true)

	questions := make([]string, 4)
	answers := make([]string, 4)
	for i := range questions {
		questions[i] = fmt.Sprintf("题目标记%d 请谈谈你的看法。", i)
		answers[i] = longAnswer(i)
	}

	report, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageType:  "professional",
		StageTitle: "专业深度面试",
		Questions:  questions,
		Answers:    answers,
	})
	require.NoError(t, err)
	require.Len(t, report.IndividualEvaluations, 4)
	for i, ev := range report.IndividualEvaluations {
		assert.Equal(t, fmt.Sprintf("题目标记%d", i), ev.Summary, "slot %d", i)
	}
	assert.Equal(t, "资深级", report.OverallSummary.OverallLevel)
	assert.Equal(t, 4, report.StageInfo.QuestionCount)
	assert.True(t, strings.HasPrefix(report.EvaluationID, "eval_"))
	assert.False(t, report.CreatedAt.IsZero())
}

func TestEvaluateSet_EmptySet(t *testing.T) {
	t.Parallel()
	s := newSetEvaluator(&orderedAI{}, &fakeQuestionRepo{}, true)
	_, err := s.EvaluateSet(context.Background(), usecase.SetInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestEvaluateSet_MissingAnswerBecomesPenalty(t *testing.T) {
	t.Parallel()
	s := newSetEvaluator(&orderedAI{}, &fakeQuestionRepo{}, true)

	report, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageTitle: "HR面试",
		Questions:  []string{"题目标记0 请谈谈你的看法。", "题目标记1 请谈谈你的看法。"},
		Answers:    []string{longAnswer(0)}, // second answer missing
	})
	require.NoError(t, err)
	require.Len(t, report.IndividualEvaluations, 2)
	assert.Equal(t, "题目标记0", report.IndividualEvaluations[0].Summary)
	// "未回答" is too short for the guard, so slot 1 is a penalty evaluation.
	assert.Equal(t, domain.LevelUnevaluable, report.IndividualEvaluations[1].PerformanceLevel)
	assert.False(t, report.IndividualEvaluations[1].PreliminaryAnalysis.IsValid)
}

func TestEvaluateSet_AllFailuresStillProduceReport(t *testing.T) {
	t.Parallel()
	s := newSetEvaluator(&fakeAI{err: errors.New("down")}, &fakeQuestionRepo{}, true)

	report, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageTitle: "专业深度面试",
		Questions:  []string{"q1", "q2"},
		Answers:    []string{longAnswer(0), longAnswer(1)},
	})
	require.NoError(t, err)
	require.Len(t, report.IndividualEvaluations, 2)
	for _, ev := range report.IndividualEvaluations {
		assert.Equal(t, domain.LevelUnevaluable, ev.PerformanceLevel)
	}
	// The summary call also failed, so the local fallback supplies it.
	assert.Equal(t, domain.OverallAssistant, report.OverallSummary.OverallLevel)
	assert.Equal(t, domain.CompetencyProfile{}, report.CompetencyProfile)
}

func TestEvaluateSet_NoProviderUsesLocalSummary(t *testing.T) {
	t.Parallel()
	s := newSetEvaluator(&orderedAI{}, &fakeQuestionRepo{}, false)

	report, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageTitle: "专业深度面试",
		Questions:  []string{"题目标记0 请谈谈你的看法。"},
		Answers:    []string{longAnswer(0)},
	})
	require.NoError(t, err)
	// 制片级 average 3.0 -> 资深级 via the local score table.
	assert.Equal(t, domain.OverallSenior, report.OverallSummary.OverallLevel)
	assert.Contains(t, report.OverallSummary.Summary, "专业深度面试")
}

func TestEvaluateSet_HintLookupFlowsIntoGuidance(t *testing.T) {
	t.Parallel()
	repo := &fakeQuestionRepo{}
	question := "题目标记0 请谈谈你的看法。"
	require.NoError(t, repo.UpsertHint(context.Background(), domain.QuestionHint{
		QuestionText:   question,
		ExpectedAnswer: "考点：模型能力边界",
		AnswerTips:     "建议先讲框架再举例",
	}))
	s := newSetEvaluator(&orderedAI{}, repo, true)

	report, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageTitle: "专业深度面试",
		Questions:  []string{question},
		Answers:    []string{longAnswer(0)},
	})
	require.NoError(t, err)
	require.Len(t, report.IndividualEvaluations, 1)
	assert.Equal(t, "考点：模型能力边界", report.IndividualEvaluations[0].ExpertGuidance.QuestionAnalysis)
	assert.Equal(t, "建议先讲框架再举例", report.IndividualEvaluations[0].ExpertGuidance.AnswerFramework)
}

func TestEvaluateSet_OnResultReceivesEverySlot(t *testing.T) {
	t.Parallel()
	s := newSetEvaluator(&orderedAI{}, &fakeQuestionRepo{}, true)

	var mu sync.Mutex
	got := map[int]string{}
	_, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageTitle: "专业深度面试",
		Questions:  []string{"题目标记0 请谈谈你的看法。", "题目标记1 请谈谈你的看法。", "题目标记2 请谈谈你的看法。"},
		Answers:    []string{longAnswer(0), longAnswer(1), longAnswer(2)},
		OnResult: func(index int, ev domain.IndividualEvaluation) {
			mu.Lock()
			got[index] = ev.Summary
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, fmt.Sprintf("题目标记%d", i), got[i])
	}
}
