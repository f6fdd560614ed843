package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

// FallbackEvaluation synthesizes a structurally complete evaluation when the
// model call or normalization failed. All five competency scores are zero and
// the reasoning quotes the failure so the report stays honest about what
// happened.
func FallbackEvaluation(req domain.EvaluationRequest, errorMessage string) domain.IndividualEvaluation {
	if errorMessage == "" {
		errorMessage = "AI服务暂时不可用"
	}
	qa := req.QuestionAnalysis
	if qa == "" {
		qa = "不可用"
	}
	af := req.AnswerFramework
	if af == "" {
		af = "不可用"
	}
	return domain.IndividualEvaluation{
		PreliminaryAnalysis: domain.PreliminaryAnalysis{
			IsValid:   false,
			Reasoning: fmt.Sprintf("评估服务发生错误: %s", errorMessage),
		},
		PerformanceLevel: domain.LevelUnevaluable,
		Summary:          "抱歉，AI教练的评估服务暂时遇到了点小麻烦，无法完成本次评估。",
		Strengths:        []domain.Strength{},
		Improvements: []domain.Improvement{
			{
				Competency: "系统稳定性",
				Suggestion: "这通常是一个临时性问题，比如网络波动或AI服务繁忙。",
				Example:    "请稍等片刻后，尝试重新提交或刷新页面。如果问题持续存在，请联系技术支持。",
			},
		},
		FollowUpQuestion: "请尝试重新提交，我们期待你的精彩回答！",
		CompetencyScores: domain.CompetencyScores{},
		ExpertGuidance: domain.ExpertGuidance{
			QuestionAnalysis: qa,
			AnswerFramework:  af,
		},
	}
}

// PenaltyEvaluation synthesizes the evaluation for a guard-rejected answer.
// It reuses the unevaluable shape but carries the rejection's coaching
// suggestions instead of a service apology. No model call is involved.
func PenaltyEvaluation(req domain.EvaluationRequest, rejection domain.PenaltyRejection) domain.IndividualEvaluation {
	qa := req.QuestionAnalysis
	if qa == "" {
		qa = "不可用"
	}
	af := req.AnswerFramework
	if af == "" {
		af = "不可用"
	}
	improvements := make([]domain.Improvement, 0, len(rejection.Suggestions))
	for _, s := range rejection.Suggestions {
		improvements = append(improvements, domain.Improvement{
			Competency: "回答质量",
			Suggestion: s,
		})
	}
	return domain.IndividualEvaluation{
		PreliminaryAnalysis: domain.PreliminaryAnalysis{
			IsValid:   false,
			Reasoning: rejection.Reason,
		},
		PerformanceLevel: domain.LevelUnevaluable,
		Summary:          rejection.Message,
		Strengths:        []domain.Strength{},
		Improvements:     improvements,
		FollowUpQuestion: "请认真组织你的回答后再次提交，我们期待你的精彩回答！",
		CompetencyScores: domain.CompetencyScores{},
		ExpertGuidance: domain.ExpertGuidance{
			QuestionAnalysis: qa,
			AnswerFramework:  af,
		},
	}
}

// FallbackSummary computes the deterministic local summary. Only valid,
// evaluable entries participate in the average; an all-fallback set lands on
// the default 助理级 with the same template text.
func FallbackSummary(evals []domain.IndividualEvaluation, stage domain.StageInfo) domain.OverallSummary {
	valid := make([]domain.IndividualEvaluation, 0, len(evals))
	for _, e := range evals {
		if e.PreliminaryAnalysis.IsValid && e.PerformanceLevel != domain.LevelUnevaluable {
			valid = append(valid, e)
		}
	}

	overallLevel := domain.OverallAssistant
	if len(valid) > 0 {
		total := 0
		for _, e := range valid {
			score := domain.LevelScore(e.PerformanceLevel)
			if score == 0 {
				score = 1
			}
			total += score
		}
		avg := float64(total) / float64(len(valid))
		overallLevel = domain.OverallLevelForAverage(avg)
	}

	summary := fmt.Sprintf(
		"在%s的%d道题目中，面试者整体表现达到%s水平。展现了一定的AI产品思维和专业能力，但在某些方面仍有提升空间。建议继续加强实践经验和深度思考能力。",
		stage.StageTitle, stage.QuestionCount, overallLevel)

	return domain.OverallSummary{
		OverallLevel: overallLevel,
		Summary:      summary,
	}
}

// FallbackSuggestions derives growth suggestions from score trends alone:
// the steepest decline becomes the improvement focus, the steepest gain the
// strength to keep, and a uniformly flat profile yields a single stability
// note. Used when the model call or its output is unusable.
func FallbackSuggestions(trends []domain.CompetencyTrend) []domain.GrowthSuggestion {
	declining := make([]domain.CompetencyTrend, 0, len(trends))
	rising := make([]domain.CompetencyTrend, 0, len(trends))
	stable := 0
	for _, t := range trends {
		if t.Current < t.Previous || t.Current < t.Historical {
			declining = append(declining, t)
		}
		if t.Current > t.Previous && t.Current > t.Historical {
			rising = append(rising, t)
		}
		if math.Abs(t.Current-t.Previous) <= 5 {
			stable++
		}
	}
	sort.SliceStable(declining, func(i, j int) bool {
		return declining[i].Current-declining[i].Previous < declining[j].Current-declining[j].Previous
	})
	sort.SliceStable(rising, func(i, j int) bool {
		return rising[i].Current-rising[i].Previous > rising[j].Current-rising[j].Previous
	})

	suggestions := make([]domain.GrowthSuggestion, 0, 3)
	if len(declining) > 0 {
		suggestions = append(suggestions, domain.GrowthSuggestion{
			Title:       fmt.Sprintf("核心提升方向: %s", declining[0].Name),
			Description: fmt.Sprintf("您在“%s”方面还有提升空间。建议重点关注相关练习，通过结构化思考和案例分析来改善表现。", declining[0].Name),
			Type:        domain.SuggestionImprovement,
		})
	}
	if len(rising) > 0 {
		suggestions = append(suggestions, domain.GrowthSuggestion{
			Title:       fmt.Sprintf("保持优势: %s", rising[0].Name),
			Description: fmt.Sprintf("您在“%s”方面表现优秀且持续进步，请继续保持，并尝试在更多场景下应用该能力。", rising[0].Name),
			Type:        domain.SuggestionStrength,
		})
	}
	if len(trends) > 0 && stable == len(trends) {
		suggestions = append(suggestions, domain.GrowthSuggestion{
			Title:       "综合表现稳定",
			Description: "您的各项能力表现稳定，建议在保持现有水平的基础上，选择一到两个重点方向进行突破。",
			Type:        domain.SuggestionInfo,
		})
	}
	return suggestions
}
