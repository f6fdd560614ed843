package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

const validSuggestionsJSON = `{
  "suggestions": [
    {"title": "重点提升：问题分析", "description": "先拆解题目维度再展开。", "type": "improvement"},
    {"title": "发挥优势：逻辑思维", "description": "论证条理清晰，继续保持。", "type": "strength"}
  ]
}`

func sampleTrends() []domain.CompetencyTrend {
	return []domain.CompetencyTrend{
		{Name: "问题分析", Current: 55, Previous: 75, Historical: 70},
		{Name: "逻辑思维", Current: 85, Previous: 78, Historical: 72},
		{Name: "表达能力", Current: 65, Previous: 64, Historical: 66},
	}
}

func TestBuildSuggestion(t *testing.T) {
	t.Parallel()
	prompts := usecase.NewPromptBuilder(nil, "test-model", 0)
	system, user := prompts.BuildSuggestion(sampleTrends())

	assert.Contains(t, system, "职业发展教练")
	assert.Contains(t, user, "问题分析: 当前表现需要提升, 上次表现良好, 历史表现良好")
	assert.Contains(t, user, "逻辑思维: 当前表现优秀, 上次表现良好, 历史表现良好")
	assert.Contains(t, user, `"suggestions"`)
	assert.Contains(t, user, "improvement、strength 或 info")
}

func TestParseSuggestions(t *testing.T) {
	t.Parallel()
	norm := usecase.NewNormalizer()

	got, err := norm.ParseSuggestions(validSuggestionsJSON)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "重点提升：问题分析", got[0].Title)
	assert.Equal(t, domain.SuggestionImprovement, got[0].Type)

	// Fenced output is cleaned before parsing.
	got, err = norm.ParseSuggestions("```json\n" + validSuggestionsJSON + "\n```")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Unknown types normalize to info.
	got, err = norm.ParseSuggestions(`{"suggestions": [{"title": "t", "description": "d", "type": "bogus"}]}`)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionInfo, got[0].Type)
}

func TestParseSuggestions_Invalid(t *testing.T) {
	t.Parallel()
	norm := usecase.NewNormalizer()

	_, err := norm.ParseSuggestions(`{"suggestions": []}`)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))

	_, err = norm.ParseSuggestions(`{"suggestions": [{"title": "", "description": "d"}]}`)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))

	_, err = norm.ParseSuggestions("这不是JSON")
	assert.True(t, errors.Is(err, domain.ErrMalformedOutput))
}

func TestFallbackSuggestions(t *testing.T) {
	t.Parallel()
	got := usecase.FallbackSuggestions(sampleTrends())
	require.Len(t, got, 2)
	assert.Equal(t, "核心提升方向: 问题分析", got[0].Title)
	assert.Equal(t, domain.SuggestionImprovement, got[0].Type)
	assert.Equal(t, "保持优势: 逻辑思维", got[1].Title)
	assert.Equal(t, domain.SuggestionStrength, got[1].Type)
}

func TestFallbackSuggestions_StableProfile(t *testing.T) {
	t.Parallel()
	got := usecase.FallbackSuggestions([]domain.CompetencyTrend{
		{Name: "内容质量", Current: 70, Previous: 70, Historical: 70},
		{Name: "表达能力", Current: 68, Previous: 66, Historical: 68},
	})
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, "综合表现稳定", last.Title)
	assert.Equal(t, domain.SuggestionInfo, last.Type)
}

func TestSuggest_ModelPath(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{response: validSuggestionsJSON}
	s := newSetEvaluator(ai, &fakeQuestionRepo{}, true)

	got := s.Suggest(context.Background(), sampleTrends())
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), ai.calls.Load())
	assert.Equal(t, "重点提升：问题分析", got[0].Title)
}

func TestSuggest_ModelFailureUsesFallback(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{err: errors.New("connection refused")}
	s := newSetEvaluator(ai, &fakeQuestionRepo{}, true)

	got := s.Suggest(context.Background(), sampleTrends())
	require.Len(t, got, 2)
	assert.Equal(t, "核心提升方向: 问题分析", got[0].Title)
}

func TestSuggest_NoProviderSkipsModel(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{response: validSuggestionsJSON}
	s := newSetEvaluator(ai, &fakeQuestionRepo{}, false)

	got := s.Suggest(context.Background(), sampleTrends())
	require.NotEmpty(t, got)
	assert.Equal(t, int64(0), ai.calls.Load())
}

func TestSuggestions_EmptyTrends(t *testing.T) {
	t.Parallel()
	svc, _, _, _, _ := newService(t)
	_, err := svc.Suggestions(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestLocalFallbacksAreCounted(t *testing.T) {
	summaryBefore := testutil.ToFloat64(observability.FallbackEvaluationsTotal.WithLabelValues("summary"))
	suggestionsBefore := testutil.ToFloat64(observability.FallbackEvaluationsTotal.WithLabelValues("suggestions"))

	s := newSetEvaluator(&orderedAI{}, &fakeQuestionRepo{}, false)
	_, err := s.EvaluateSet(context.Background(), usecase.SetInput{
		StageTitle: "HR面试",
		Questions:  []string{"题目标记0 请谈谈你的看法。"},
		Answers:    []string{longAnswer(0)},
	})
	require.NoError(t, err)
	s.Suggest(context.Background(), sampleTrends())

	summaryAfter := testutil.ToFloat64(observability.FallbackEvaluationsTotal.WithLabelValues("summary"))
	suggestionsAfter := testutil.ToFloat64(observability.FallbackEvaluationsTotal.WithLabelValues("suggestions"))
	assert.GreaterOrEqual(t, summaryAfter-summaryBefore, 1.0)
	assert.GreaterOrEqual(t, suggestionsAfter-suggestionsBefore, 1.0)
}
