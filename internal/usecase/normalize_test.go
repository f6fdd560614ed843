package usecase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

const validIndividualJSON = `{
  "preliminaryAnalysis": {"isValid": true, "reasoning": "回答切题且有具体案例"},
  "performanceLevel": "制片级",
  "summary": "回答展现了清晰的产品思维。",
  "strengths": [{"competency": "逻辑思维", "description": "论证层次分明"}],
  "improvements": [{"competency": "内容质量", "suggestion": "补充量化结果"}],
  "followUpQuestion": "如果预算减半你会怎么取舍？",
  "competencyScores": {"内容质量": 4, "逻辑思维": 4, "表达能力": 3, "创新思维": 3, "问题分析": 4}
}`

func TestParseIndividual_Valid(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	ev, err := n.ParseIndividual(validIndividualJSON)
	require.NoError(t, err)
	assert.True(t, ev.PreliminaryAnalysis.IsValid)
	assert.Equal(t, domain.LevelProducer, ev.PerformanceLevel)
	assert.Equal(t, 4, ev.CompetencyScores.ContentQuality)
	assert.Len(t, ev.Strengths, 1)
	assert.Len(t, ev.Improvements, 1)
}

func TestParseIndividual_MarkdownFences(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	raw := "好的，这是评估结果：\n```json\n" + validIndividualJSON + "\n```\n希望对你有帮助。"
	ev, err := n.ParseIndividual(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelProducer, ev.PerformanceLevel)
}

func TestParseIndividual_TrailingComma(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	raw := `{
  "preliminaryAnalysis": {"isValid": true, "reasoning": "ok"},
  "performanceLevel": "编剧级",
  "summary": "总体不错",
  "followUpQuestion": "能展开说说吗？",
}`
	ev, err := n.ParseIndividual(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelWriter, ev.PerformanceLevel)
	// Absent slices normalize to empty, never nil.
	assert.NotNil(t, ev.Strengths)
	assert.NotNil(t, ev.Improvements)
}

func TestParseIndividual_MissingRequiredField(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	raw := `{"performanceLevel": "助理级", "summary": "s", "followUpQuestion": "f"}`
	_, err := n.ParseIndividual(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))
}

func TestParseIndividual_UnknownLevel(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	raw := `{
  "preliminaryAnalysis": {"isValid": true, "reasoning": "ok"},
  "performanceLevel": "大师级",
  "summary": "s",
  "followUpQuestion": "f"
}`
	_, err := n.ParseIndividual(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))
}

func TestParseIndividual_ScoreOutOfRange(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	raw := `{
  "preliminaryAnalysis": {"isValid": true, "reasoning": "ok"},
  "performanceLevel": "制片级",
  "summary": "s",
  "followUpQuestion": "f",
  "competencyScores": {"内容质量": 9, "逻辑思维": 4, "表达能力": 3, "创新思维": 3, "问题分析": 4}
}`
	_, err := n.ParseIndividual(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))
}

func TestParseIndividual_Garbage(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	_, err := n.ParseIndividual("抱歉，我无法完成这个评估任务。")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedOutput))
}

func TestParseSummary_Valid(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	raw := `{
  "overallLevel": "资深级",
  "summary": "整体表现稳定，逻辑能力突出。",
  "strengths": [{"competency": "逻辑思维", "description": "结构化表达"}]
}`
	sum, err := n.ParseSummary(raw)
	require.NoError(t, err)
	assert.Equal(t, "资深级", sum.OverallLevel)
	assert.Len(t, sum.Strengths, 1)
}

func TestParseSummary_MissingLevel(t *testing.T) {
	t.Parallel()
	n := usecase.NewNormalizer()
	_, err := n.ParseSummary(`{"summary": "整体不错"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))
}
