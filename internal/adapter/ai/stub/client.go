// Package stub provides a fast, deterministic AI client for local runs and
// tests. It is wired automatically when no API key is configured.
package stub

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Client returns canned evaluations matching the expected schema.
type Client struct{}

func New() *Client { return &Client{} }

// ChatJSON returns a compact JSON string shaped like a real model reply.
// Summary and growth-suggestion prompts are recognized by their markers and
// answered with their own schemas.
func (c *Client) ChatJSON(_ domain.Context, systemPrompt, _ string, _ int) (string, error) {
	// Simulate a tiny bit of processing latency to resemble real work
	time.Sleep(20 * time.Millisecond)

	var payload map[string]any
	if strings.Contains(systemPrompt, "职业发展教练") {
		payload = map[string]any{
			"suggestions": []map[string]string{
				{
					"title":       "重点提升：问题分析",
					"description": "建议在回答前先拆解题目考察的维度，再逐一展开，让分析更有层次。",
					"type":        "improvement",
				},
				{
					"title":       "发挥优势：逻辑思维",
					"description": "您的论证条理清晰，请继续保持，并尝试在复杂问题中应用结构化框架。",
					"type":        "strength",
				},
			},
		}
	} else if strings.Contains(systemPrompt, "整体表现") {
		payload = map[string]any{
			"overallLevel": "专业级",
			"summary":      "回答整体结构清晰，具备一定的行业理解，表达有待进一步凝练。",
			"strengths": []map[string]string{
				{"competency": "逻辑思维", "description": "回答层次分明，论证有条理。"},
			},
			"improvements": []map[string]string{
				{"competency": "内容质量", "suggestion": "补充具体案例支撑观点。", "actionPlan": "每个论点准备一个真实项目例子。", "example": "例如结合一次短剧立项的实际经历展开。"},
			},
		}
	} else {
		payload = map[string]any{
			"preliminaryAnalysis": map[string]any{
				"isValid":   true,
				"reasoning": "回答与问题相关，内容具体。",
			},
			"performanceLevel": "制片级",
			"summary":          "回答覆盖了核心考点，结构完整，细节可再充实。",
			"strengths": []map[string]string{
				{"competency": "内容质量", "description": "紧扣题目要点，给出了可执行的思路。"},
			},
			"improvements": []map[string]string{
				{"competency": "表达能力", "suggestion": "先给结论再展开论据，提升说服力。", "example": "开头一句话概括观点，再分三点论证。"},
			},
			"followUpQuestion": "如果预算减半，你的方案会如何调整？",
			"competencyScores": map[string]int{
				"内容质量": 4, "逻辑思维": 4, "表达能力": 3, "创新思维": 3, "问题分析": 4,
			},
		}
	}
	b, _ := json.Marshal(payload)
	return string(b), nil
}
