package postgres

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

func sampleReport() domain.AggregatedReport {
	return domain.AggregatedReport{
		EvaluationID: "eval_01TEST",
		StageInfo: domain.StageInfo{
			StageType:     "professional",
			StageTitle:    "专业深度面试",
			QuestionCount: 1,
		},
		IndividualEvaluations: []domain.IndividualEvaluation{
			{
				PreliminaryAnalysis: domain.PreliminaryAnalysis{IsValid: true, Reasoning: "ok"},
				PerformanceLevel:    domain.LevelProducer,
				Summary:             "不错",
				Strengths:           []domain.Strength{},
				Improvements:        []domain.Improvement{},
			},
		},
		OverallSummary: domain.OverallSummary{OverallLevel: "资深级", Summary: "稳定"},
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDecodeReportBlob_PlainObject(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	got, err := decodeReportBlob(b)
	require.NoError(t, err)
	assert.Equal(t, "eval_01TEST", got.EvaluationID)
	assert.Equal(t, "资深级", got.OverallSummary.OverallLevel)
	require.Len(t, got.IndividualEvaluations, 1)
	assert.Equal(t, domain.LevelProducer, got.IndividualEvaluations[0].PerformanceLevel)
}

func TestDecodeReportBlob_DoubleEncodedString(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(sampleReport())
	require.NoError(t, err)
	doubled := []byte(strconv.Quote(string(b)))

	got, err := decodeReportBlob(doubled)
	require.NoError(t, err)
	assert.Equal(t, "eval_01TEST", got.EvaluationID)
}

func TestDecodeReportBlob_Garbage(t *testing.T) {
	t.Parallel()
	_, err := decodeReportBlob([]byte("not json at all"))
	require.Error(t, err)
}
