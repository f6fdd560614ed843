package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zaizaiboom/futureu913/internal/config"
	"github.com/zaizaiboom/futureu913/internal/domain"
	"github.com/zaizaiboom/futureu913/internal/usecase"
)

// Server bundles handler dependencies.
type Server struct {
	cfg      config.Config
	service  *usecase.Service
	validate *validator.Validate

	// Readiness probes, injected by the composition root.
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
	BrokerCheck func(ctx context.Context) error
}

func NewServer(cfg config.Config, service *usecase.Service) *Server {
	return &Server{
		cfg:      cfg,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type evaluateRequest struct {
	SessionID        string   `json:"session_id" validate:"required,max=128"`
	StageType        string   `json:"stage_type" validate:"required,max=64"`
	StageTitle       string   `json:"stage_title" validate:"required,max=256"`
	QuestionSetIndex int      `json:"question_set_index" validate:"gte=0"`
	Questions        []string `json:"questions" validate:"required,min=1,max=50,dive,required"`
	Answers          []string `json:"answers" validate:"max=50"`
	Async            bool     `json:"async"`
}

type enqueueResponse struct {
	EvaluationID string `json:"evaluation_id"`
	Status       string `json:"status"`
}

// EvaluateHandler accepts a question set and either evaluates it in-request
// or enqueues it for the worker.
func (s *Server) EvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err.Error()), nil)
			return
		}
		if len(req.Answers) > len(req.Questions) {
			writeError(w, r, fmt.Errorf("%w: more answers than questions", domain.ErrInvalidArgument), nil)
			return
		}

		in := usecase.SetInput{
			StageType:        req.StageType,
			StageTitle:       req.StageTitle,
			QuestionSetIndex: req.QuestionSetIndex,
			Questions:        req.Questions,
			Answers:          req.Answers,
		}

		if req.Async {
			evaluationID, err := s.service.EnqueueSet(r.Context(), req.SessionID, in)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			writeJSON(w, http.StatusAccepted, enqueueResponse{
				EvaluationID: evaluationID,
				Status:       "processing",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SyncRequestTimeout)
		defer cancel()
		report, err := s.service.EvaluateSync(ctx, req.SessionID, in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

type singleQuestionRequest struct {
	QuestionIndex    int      `json:"question_index" validate:"gte=0"`
	Question         string   `json:"question" validate:"required"`
	UserAnswer       string   `json:"user_answer"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	KeyPoints        []string `json:"key_points"`
	StageType        string   `json:"stage_type" validate:"required,max=64"`
	QuestionAnalysis string   `json:"question_analysis"`
	AnswerFramework  string   `json:"answer_framework"`
}

type taskResponse struct {
	SessionID     string                       `json:"session_id"`
	QuestionIndex int                          `json:"question_index"`
	Status        domain.TaskStatus            `json:"status"`
	Result        *domain.IndividualEvaluation `json:"result,omitempty"`
	ErrorMessage  string                       `json:"error_message,omitempty"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

func toTaskResponse(t domain.EvaluationTask) taskResponse {
	return taskResponse{
		SessionID:     t.SessionID,
		QuestionIndex: t.QuestionIndex,
		Status:        t.Status,
		Result:        t.Result,
		ErrorMessage:  t.ErrorMessage,
		UpdatedAt:     t.UpdatedAt,
	}
}

// SubmitQuestionHandler enqueues one question idempotently. The guard runs
// before enqueueing so obviously unusable answers are rejected without
// occupying the queue. Duplicate submissions return the existing task.
func (s *Server) SubmitQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, r, fmt.Errorf("%w: missing session id", domain.ErrInvalidArgument), nil)
			return
		}
		var req singleQuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err.Error()), nil)
			return
		}

		if rejection := usecase.DetectLowQualityAnswer(req.UserAnswer, req.Question); rejection != nil {
			writeRejection(w, *rejection)
			return
		}

		evalReq := domain.EvaluationRequest{
			Question:         req.Question,
			UserAnswer:       req.UserAnswer,
			Category:         req.Category,
			Difficulty:       req.Difficulty,
			KeyPoints:        req.KeyPoints,
			StageType:        req.StageType,
			QuestionAnalysis: req.QuestionAnalysis,
			AnswerFramework:  req.AnswerFramework,
		}
		task, created, err := s.service.EnqueueSingle(r.Context(), sessionID, req.QuestionIndex, evalReq)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusAccepted
		}
		writeJSON(w, status, toTaskResponse(task))
	}
}

type competencyTrendPayload struct {
	Name       string  `json:"name" validate:"required,max=64"`
	Current    float64 `json:"current" validate:"gte=0,lte=100"`
	Previous   float64 `json:"previous" validate:"gte=0,lte=100"`
	Historical float64 `json:"historical" validate:"gte=0,lte=100"`
}

type suggestionsRequest struct {
	CompetencyData []competencyTrendPayload `json:"competency_data" validate:"required,min=1,max=20,dive"`
}

type suggestionsResponse struct {
	Suggestions []domain.GrowthSuggestion `json:"suggestions"`
}

// SuggestionsHandler turns competency score trends into personalized growth
// suggestions. The pipeline substitutes a deterministic local analysis when
// the model is unavailable, so a valid request always yields suggestions.
func (s *Server) SuggestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suggestionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err.Error()), nil)
			return
		}

		trends := make([]domain.CompetencyTrend, 0, len(req.CompetencyData))
		for _, c := range req.CompetencyData {
			trends = append(trends, domain.CompetencyTrend{
				Name:       c.Name,
				Current:    c.Current,
				Previous:   c.Previous,
				Historical: c.Historical,
			})
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SyncRequestTimeout)
		defer cancel()
		suggestions, err := s.service.Suggestions(ctx, trends)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
	}
}

type summaryResponse struct {
	SessionID    string                 `json:"session_id"`
	Status       domain.TaskStatus      `json:"status"`
	Result       *domain.OverallSummary `json:"result,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// StatusHandler reports per-question task rows (type=single, the default) or
// the session summary (type=summary).
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, r, fmt.Errorf("%w: missing session id", domain.ErrInvalidArgument), nil)
			return
		}
		switch queryType := r.URL.Query().Get("type"); queryType {
		case "", "single":
			tasks, err := s.service.TaskStatus(r.Context(), sessionID)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			out := make([]taskResponse, 0, len(tasks))
			for _, t := range tasks {
				out = append(out, toTaskResponse(t))
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"session_id": sessionID,
				"tasks":      out,
			})
		case "summary":
			rec, err := s.service.SummaryStatus(r.Context(), sessionID)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			writeJSON(w, http.StatusOK, summaryResponse{
				SessionID:    rec.SessionID,
				Status:       rec.Status,
				Result:       rec.Result,
				ErrorMessage: rec.ErrorMessage,
				UpdatedAt:    rec.UpdatedAt,
			})
		default:
			writeError(w, r, fmt.Errorf("%w: unknown status type %q", domain.ErrInvalidArgument, queryType), nil)
		}
	}
}

// ReadyzHandler probes DB, Redis and the broker.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		probe := func(name string, fn func(ctx context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: name, OK: true})
			}
		}
		probe("db", s.DBCheck)
		probe("redis", s.RedisCheck)
		probe("broker", s.BrokerCheck)

		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]interface{}{"checks": checks})
	}
}

// ReportHandler returns the latest persisted report for a session.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, r, fmt.Errorf("%w: missing session id", domain.ErrInvalidArgument), nil)
			return
		}
		report, err := s.service.Report(r.Context(), sessionID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
