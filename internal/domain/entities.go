// Package domain defines the core entities and ports of the interview
// evaluation service.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrMalformedOutput marks model output that is not parseable JSON even
	// after repair.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrMissingFields marks parseable model output lacking required fields.
	ErrMissingFields = errors.New("missing required fields")
	ErrInternal      = errors.New("internal error")
)

// EvaluationRequest is one question/answer unit to be scored.
// Immutable once constructed; created per question at evaluation time.
type EvaluationRequest struct {
	Question         string   `json:"question"`
	UserAnswer       string   `json:"userAnswer"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	KeyPoints        []string `json:"keyPoints"`
	StageType        string   `json:"stageType"`
	QuestionAnalysis string   `json:"questionAnalysis"`
	AnswerFramework  string   `json:"answerFramework"`
}

// PreliminaryAnalysis is the model's own validity judgment for an answer.
// The local guard is a cheap pre-filter; this is the authoritative signal.
type PreliminaryAnalysis struct {
	IsValid   bool   `json:"isValid"`
	Reasoning string `json:"reasoning"`
}

// Strength is one positive finding in an evaluation.
type Strength struct {
	Competency  string `json:"competency"`
	Description string `json:"description"`
}

// Improvement is one actionable gap in an evaluation.
type Improvement struct {
	Competency string `json:"competency"`
	Suggestion string `json:"suggestion"`
	ActionPlan string `json:"actionPlan,omitempty"`
	Example    string `json:"example,omitempty"`
}

// CompetencyScores holds the five fixed scoring dimensions, each 1-5
// (0 when unavailable, e.g. in fallback evaluations).
type CompetencyScores struct {
	ContentQuality   int `json:"内容质量"`
	LogicalThinking  int `json:"逻辑思维"`
	Communication    int `json:"表达能力"`
	CreativeThinking int `json:"创新思维"`
	ProblemAnalysis  int `json:"问题分析"`
}

// ExpertGuidance echoes the coaching hints the evaluation was based on.
type ExpertGuidance struct {
	QuestionAnalysis string `json:"questionAnalysis"`
	AnswerFramework  string `json:"answerFramework"`
}

// IndividualEvaluation is the per-question evaluation result. It is produced
// either by the normalizer (success path) or the fallback synthesizer
// (failure path); callers distinguish the two via PreliminaryAnalysis.IsValid.
type IndividualEvaluation struct {
	PreliminaryAnalysis PreliminaryAnalysis `json:"preliminaryAnalysis"`
	PerformanceLevel    PerformanceLevel    `json:"performanceLevel"`
	Summary             string              `json:"summary"`
	Strengths           []Strength          `json:"strengths"`
	Improvements        []Improvement       `json:"improvements"`
	FollowUpQuestion    string              `json:"followUpQuestion"`
	CompetencyScores    CompetencyScores    `json:"competencyScores"`
	ExpertGuidance      ExpertGuidance      `json:"expertGuidance"`
}

// OverallSummary is the cross-question synthesis of a question set.
type OverallSummary struct {
	OverallLevel string        `json:"overallLevel"`
	Summary      string        `json:"summary"`
	Strengths    []Strength    `json:"strengths,omitempty"`
	Improvements []Improvement `json:"improvements,omitempty"`
}

// StageInfo describes the interview stage a question set belongs to.
type StageInfo struct {
	StageType        string `json:"stageType"`
	StageTitle       string `json:"stageTitle"`
	QuestionSetIndex int    `json:"questionSetIndex"`
	QuestionCount    int    `json:"questionCount"`
}

// CompetencyProfile is a five-dimension average over the valid evaluations of
// a set, on a 0-100 scale. Sub-scores for questions without model scores are
// synthesized (see usecase.SubScorer) and are indicative, not measured.
type CompetencyProfile struct {
	ContentQuality   float64 `json:"内容质量"`
	LogicalThinking  float64 `json:"逻辑思维"`
	Communication    float64 `json:"表达能力"`
	CreativeThinking float64 `json:"创新思维"`
	ProblemAnalysis  float64 `json:"问题分析"`
}

// AggregatedReport is the final artifact for a question set.
// Invariant: len(IndividualEvaluations) == StageInfo.QuestionCount, in input
// order. Never mutated after creation; a re-evaluation creates a new report.
type AggregatedReport struct {
	EvaluationID          string                 `json:"evaluationId"`
	StageInfo             StageInfo              `json:"stageInfo"`
	IndividualEvaluations []IndividualEvaluation `json:"individualEvaluations"`
	OverallSummary        OverallSummary         `json:"overallSummary"`
	CompetencyProfile     CompetencyProfile      `json:"competencyProfile"`
	CreatedAt             time.Time              `json:"timestamp"`
}

// PenaltyRejection is the guard's structured rejection of a low-quality
// answer. It is surfaced distinctly from evaluation failure and never
// triggers a network call.
type PenaltyRejection struct {
	IsPenalty   bool     `json:"isPenalty"`
	Message     string   `json:"message"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions"`
}

// CompetencyTrend is one competency's score trend (0-100 scale) across the
// current, previous and historical evaluations, used for growth suggestions.
type CompetencyTrend struct {
	Name       string  `json:"name"`
	Current    float64 `json:"current"`
	Previous   float64 `json:"previous"`
	Historical float64 `json:"historical"`
}

// Growth suggestion kinds.
const (
	SuggestionImprovement = "improvement"
	SuggestionStrength    = "strength"
	SuggestionInfo        = "info"
)

// GrowthSuggestion is one personalized coaching suggestion derived from
// competency trends.
type GrowthSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// TaskStatus enumerates evaluation task states.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// EvaluationTask is a per-question work row keyed by (session id, question
// index). Question indexes are always >= 0; session-level summaries are a
// separate entity (SummaryRecord), not an index sentinel.
type EvaluationTask struct {
	SessionID     string
	QuestionIndex int
	Status        TaskStatus
	Result        *IndividualEvaluation
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SummaryRecord is the per-session summary row.
type SummaryRecord struct {
	SessionID    string
	Status       TaskStatus
	Result       *OverallSummary
	ErrorMessage string
	UpdatedAt    time.Time
}

// QuestionHint carries the coaching material looked up per question text.
type QuestionHint struct {
	QuestionText   string
	ExpectedAnswer string
	AnswerTips     string
}

// Repositories (ports)

type TaskRepository interface {
	// CreatePending inserts a pending task if none exists for the key and
	// reports whether a row already existed (idempotent enqueue).
	CreatePending(ctx Context, sessionID string, questionIndex int) (existing *EvaluationTask, created bool, err error)
	// Upsert writes a task result; re-running the same key overwrites.
	Upsert(ctx Context, t EvaluationTask) error
	ListBySession(ctx Context, sessionID string) ([]EvaluationTask, error)
	Get(ctx Context, sessionID string, questionIndex int) (EvaluationTask, error)
}

type SummaryRepository interface {
	Upsert(ctx Context, s SummaryRecord) error
	Get(ctx Context, sessionID string) (SummaryRecord, error)
}

type ReportRepository interface {
	Create(ctx Context, sessionID string, report AggregatedReport) error
	GetBySession(ctx Context, sessionID string) (AggregatedReport, error)
}

type QuestionRepository interface {
	FindHint(ctx Context, questionText string) (QuestionHint, error)
	UpsertHint(ctx Context, h QuestionHint) error
}

// Queue (port)

// EvaluateSetPayload is the queue payload for an asynchronous question-set
// evaluation.
type EvaluateSetPayload struct {
	SessionID        string   `json:"session_id"`
	EvaluationID     string   `json:"evaluation_id"`
	StageType        string   `json:"stage_type"`
	StageTitle       string   `json:"stage_title"`
	QuestionSetIndex int      `json:"question_set_index"`
	Questions        []string `json:"questions"`
	Answers          []string `json:"answers"`
}

// EvaluateSinglePayload is the queue payload for one enqueued question.
type EvaluateSinglePayload struct {
	SessionID     string            `json:"session_id"`
	QuestionIndex int               `json:"question_index"`
	Request       EvaluationRequest `json:"request"`
}

type Queue interface {
	EnqueueSet(ctx Context, payload EvaluateSetPayload) error
	EnqueueSingle(ctx Context, payload EvaluateSinglePayload) error
}

// AIClient (port)

// AIClient issues one chat-completion call and returns the raw assistant
// message text. Implementations must not retry; the caller decides whether
// to substitute a fallback.
type AIClient interface {
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Context aliases context.Context so domain signatures stay compact.
type Context = context.Context
