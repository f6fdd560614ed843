package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zaizaiboom/futureu913/internal/adapter/ai/tokencount"
	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

func TestBuildEvaluation_InterpolatesRequest(t *testing.T) {
	t.Parallel()
	p := usecase.NewPromptBuilder(nil, "test-model", 0)
	system, user := p.BuildEvaluation(domain.EvaluationRequest{
		Question:         "请介绍你做过的AI产品。",
		UserAnswer:       "我主导过一个智能客服项目。",
		StageType:        "professional",
		QuestionAnalysis: "考点：产品落地经验",
		AnswerFramework:  "框架：背景-决策-结果",
	})
	assert.Contains(t, system, "AI产品面试教练")
	assert.Contains(t, user, "请介绍你做过的AI产品。")
	assert.Contains(t, user, "我主导过一个智能客服项目。")
	assert.Contains(t, user, "考点：产品落地经验")
	assert.Contains(t, user, "框架：背景-决策-结果")
	assert.Contains(t, user, "professional")
}

func TestBuildEvaluation_PlaceholderHints(t *testing.T) {
	t.Parallel()
	p := usecase.NewPromptBuilder(nil, "test-model", 0)
	_, user := p.BuildEvaluation(domain.EvaluationRequest{
		Question:   "q",
		UserAnswer: "a",
	})
	assert.Contains(t, user, usecase.DefaultQuestionAnalysis)
	assert.Contains(t, user, usecase.DefaultAnswerFramework)
}

func TestBuildEvaluation_BudgetsLongAnswers(t *testing.T) {
	t.Parallel()
	p := usecase.NewPromptBuilder(tokencount.NewCounter(), "gpt-4", 50)
	long := strings.Repeat("这是一个非常详细的回答，涵盖了产品设计的方方面面。", 200)
	_, user := p.BuildEvaluation(domain.EvaluationRequest{
		Question:   "q",
		UserAnswer: long,
	})
	assert.Less(t, len(user), len(long), "long answer must be truncated into the prompt")
}

func TestBuildSummary_ListsEveryQuestion(t *testing.T) {
	t.Parallel()
	p := usecase.NewPromptBuilder(nil, "test-model", 0)
	evals := []domain.IndividualEvaluation{
		{PerformanceLevel: domain.LevelProducer, Summary: "第一题总结"},
		{PerformanceLevel: domain.LevelWriter, Summary: "第二题总结"},
	}
	system, user := p.BuildSummary(evals, domain.StageInfo{
		StageType:  "professional",
		StageTitle: "专业深度面试",
	})
	assert.Contains(t, system, "面试总监")
	assert.Contains(t, user, "--- 问题 1 评估 ---")
	assert.Contains(t, user, "--- 问题 2 评估 ---")
	assert.Contains(t, user, "第一题总结")
	assert.Contains(t, user, "第二题总结")
	// The overall scale differs from the per-question one.
	assert.Contains(t, user, `"总监级", "资深级", "专业级", "助理级"`)
}
