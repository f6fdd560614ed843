package usecase

import (
	"regexp"
	"strings"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Guard rejection reasons, used as metric labels.
const (
	GuardReasonTooShort   = "too_short"
	GuardReasonNonsense   = "nonsense"
	GuardReasonIrrelevant = "irrelevant"
	GuardReasonTemplate   = "template"
)

const penaltyMessage = "请认真作答再继续解析"

var nonsensePatterns = []*regexp.Regexp{
	// Only letters and spaces (likely random typing)
	regexp.MustCompile(`^[a-z\s]*$`),
	// Repeated characters (aaaaa, 11111)
	regexp.MustCompile(`(.)\1{4,}`),
	// Only numbers and spaces
	regexp.MustCompile(`^[0-9\s]*$`),
	// No Chinese or English characters at all
	regexp.MustCompile(`^[^\x{4e00}-\x{9fa5}a-zA-Z]*$`),
}

var dismissivePhrases = []string{
	"不知道", "不清楚", "没想过", "随便", "无所谓", "都行", "看情况",
	"i don't know", "no idea", "whatever", "anything", "doesn't matter",
}

var templatePhrases = []string{
	"根据我的理解", "我认为这个问题", "首先其次最后", "综上所述",
	"in my opinion", "first second third", "in conclusion",
}

// DetectLowQualityAnswer runs the ordered local heuristics over a trimmed,
// lowercased answer. The first matching rule wins; nil means the answer may
// proceed to model evaluation. The function is pure and never touches the
// network.
func DetectLowQualityAnswer(userAnswer, question string) *domain.PenaltyRejection {
	answer := strings.ToLower(strings.TrimSpace(userAnswer))

	if len([]rune(answer)) < 10 {
		observability.RecordGuardRejection(GuardReasonTooShort)
		return &domain.PenaltyRejection{
			IsPenalty: true,
			Message:   penaltyMessage,
			Reason:    "回答内容过于简短，无法进行有效评估",
			Suggestions: []string{
				"请提供至少50字以上的详细回答",
				"结合具体案例或经验来阐述你的观点",
				"展示你的思考过程和分析逻辑",
			},
		}
	}

	if len([]rune(answer)) < 50 {
		for _, pattern := range nonsensePatterns {
			if pattern.MatchString(answer) {
				observability.RecordGuardRejection(GuardReasonNonsense)
				return &domain.PenaltyRejection{
					IsPenalty: true,
					Message:   penaltyMessage,
					Reason:    "检测到无意义的随机输入",
					Suggestions: []string{
						"请用中文或英文认真回答问题",
						"避免输入无关的字符或数字",
						"展示你对问题的真实理解和思考",
					},
				}
			}
		}
	}

	if len([]rune(answer)) < 100 {
		dismissive := false
		for _, phrase := range dismissivePhrases {
			if strings.Contains(answer, phrase) {
				dismissive = true
				break
			}
		}
		if dismissive && !sharesQuestionTokens(answer, question) {
			observability.RecordGuardRejection(GuardReasonIrrelevant)
			return &domain.PenaltyRejection{
				IsPenalty: true,
				Message:   penaltyMessage,
				Reason:    "回答与问题不相关或过于敷衍",
				Suggestions: []string{
					"请仔细阅读问题并针对性回答",
					"分享你的真实想法和经验",
					"即使不确定也请尝试分析和思考",
				},
			}
		}
	}

	if len([]rune(answer)) < 200 {
		templateCount := 0
		for _, phrase := range templatePhrases {
			if strings.Contains(answer, strings.ToLower(phrase)) {
				templateCount++
			}
		}
		if templateCount >= 3 {
			observability.RecordGuardRejection(GuardReasonTemplate)
			return &domain.PenaltyRejection{
				IsPenalty: true,
				Message:   penaltyMessage,
				Reason:    "回答过于模板化，缺乏个人思考",
				Suggestions: []string{
					"请用自己的话来表达观点",
					"结合具体的工作经验或案例",
					"展示你独特的思考角度和见解",
				},
			}
		}
	}

	return nil
}

// sharesQuestionTokens reports whether the answer contains any significant
// question token (length > 3) or its 3-character prefix.
func sharesQuestionTokens(answer, question string) bool {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		if len([]rune(word)) <= 3 {
			continue
		}
		if strings.Contains(answer, word) {
			return true
		}
		r := []rune(word)
		if strings.Contains(answer, string(r[:3])) {
			return true
		}
	}
	return false
}
