package usecase

import (
	"fmt"

	"log/slog"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Job type labels for queue metrics.
const (
	JobEvaluateSet    = "evaluate_set"
	JobEvaluateSingle = "evaluate_single"
)

// Service orchestrates evaluations across the pipeline, the repositories and
// the queue. It is shared by the HTTP server (sync path, enqueue, polling)
// and the worker (async processing).
type Service struct {
	sets      *SetEvaluator
	tasks     domain.TaskRepository
	summaries domain.SummaryRepository
	reports   domain.ReportRepository
	queue     domain.Queue
}

func NewService(sets *SetEvaluator, tasks domain.TaskRepository, summaries domain.SummaryRepository, reports domain.ReportRepository, queue domain.Queue) *Service {
	return &Service{sets: sets, tasks: tasks, summaries: summaries, reports: reports, queue: queue}
}

// EvaluateSync runs a question set in-request and persists progress and the
// final report before returning it.
func (s *Service) EvaluateSync(ctx domain.Context, sessionID string, in SetInput) (domain.AggregatedReport, error) {
	in.OnResult = s.progressWriter(ctx, sessionID)
	report, err := s.sets.EvaluateSet(ctx, in)
	if err != nil {
		return domain.AggregatedReport{}, err
	}
	s.persistOutcome(ctx, sessionID, report)
	return report, nil
}

// EnqueueSet mints an evaluation id and hands the set to the queue. The id
// is returned immediately; the worker fills in results.
func (s *Service) EnqueueSet(ctx domain.Context, sessionID string, in SetInput) (string, error) {
	evaluationID := NewEvaluationID()
	payload := domain.EvaluateSetPayload{
		SessionID:        sessionID,
		EvaluationID:     evaluationID,
		StageType:        in.StageType,
		StageTitle:       in.StageTitle,
		QuestionSetIndex: in.QuestionSetIndex,
		Questions:        in.Questions,
		Answers:          in.Answers,
	}
	if err := s.queue.EnqueueSet(ctx, payload); err != nil {
		return "", fmt.Errorf("op=service.enqueue_set: %w", err)
	}
	observability.EnqueueJob(JobEvaluateSet)
	slog.Info("question set enqueued",
		slog.String("session_id", sessionID),
		slog.String("evaluation_id", evaluationID),
		slog.Int("question_count", len(in.Questions)))
	return evaluationID, nil
}

// EnqueueSingle enqueues one question idempotently. A duplicate submission
// for the same (session, index) returns the existing task without enqueueing
// again, unless that task failed before reaching the queue, in which case the
// row is reset and published anew.
func (s *Service) EnqueueSingle(ctx domain.Context, sessionID string, questionIndex int, req domain.EvaluationRequest) (domain.EvaluationTask, bool, error) {
	if questionIndex < 0 {
		return domain.EvaluationTask{}, false, fmt.Errorf("%w: op=service.enqueue_single: negative question index", domain.ErrInvalidArgument)
	}
	existing, created, err := s.tasks.CreatePending(ctx, sessionID, questionIndex)
	if err != nil {
		return domain.EvaluationTask{}, false, fmt.Errorf("op=service.enqueue_single: %w", err)
	}
	if !created && existing.Status != domain.TaskFailed {
		slog.Info("duplicate single-question submission",
			slog.String("session_id", sessionID),
			slog.Int("question_index", questionIndex),
			slog.String("status", string(existing.Status)))
		return *existing, false, nil
	}
	if !created {
		// A failed row marks a publish that never reached the queue; reset it
		// so this submission retries instead of reporting a task no worker
		// will ever pick up.
		if err := s.tasks.Upsert(ctx, domain.EvaluationTask{
			SessionID:     sessionID,
			QuestionIndex: questionIndex,
			Status:        domain.TaskPending,
		}); err != nil {
			return domain.EvaluationTask{}, false, fmt.Errorf("op=service.enqueue_single: %w", err)
		}
	}

	payload := domain.EvaluateSinglePayload{
		SessionID:     sessionID,
		QuestionIndex: questionIndex,
		Request:       req,
	}
	if err := s.queue.EnqueueSingle(ctx, payload); err != nil {
		// Leave the row failed rather than pending so the error is visible in
		// status polling and the next submission retries the publish.
		if markErr := s.tasks.Upsert(ctx, domain.EvaluationTask{
			SessionID:     sessionID,
			QuestionIndex: questionIndex,
			Status:        domain.TaskFailed,
			ErrorMessage:  fmt.Sprintf("enqueue failed: %v", err),
		}); markErr != nil {
			slog.Warn("failed to mark task after enqueue error",
				slog.String("session_id", sessionID),
				slog.Int("question_index", questionIndex),
				slog.Any("error", markErr))
		}
		return domain.EvaluationTask{}, false, fmt.Errorf("op=service.enqueue_single: %w", err)
	}
	observability.EnqueueJob(JobEvaluateSingle)
	task, err := s.tasks.Get(ctx, sessionID, questionIndex)
	if err != nil {
		return domain.EvaluationTask{}, false, fmt.Errorf("op=service.enqueue_single: %w", err)
	}
	return task, true, nil
}

// ProcessSet is the worker entrypoint for an enqueued question set.
func (s *Service) ProcessSet(ctx domain.Context, payload domain.EvaluateSetPayload) error {
	observability.StartProcessingJob(JobEvaluateSet)
	in := SetInput{
		StageType:        payload.StageType,
		StageTitle:       payload.StageTitle,
		QuestionSetIndex: payload.QuestionSetIndex,
		Questions:        payload.Questions,
		Answers:          payload.Answers,
		EvaluationID:     payload.EvaluationID,
		OnResult:         s.progressWriter(ctx, payload.SessionID),
	}
	report, err := s.sets.EvaluateSet(ctx, in)
	if err != nil {
		observability.FailJob(JobEvaluateSet)
		return fmt.Errorf("op=service.process_set: %w", err)
	}
	s.persistOutcome(ctx, payload.SessionID, report)
	observability.CompleteJob(JobEvaluateSet)
	return nil
}

// ProcessSingle is the worker entrypoint for one enqueued question. The task
// row is upserted whatever the outcome; a fallback evaluation still counts
// as completed because it is a complete, renderable result.
func (s *Service) ProcessSingle(ctx domain.Context, payload domain.EvaluateSinglePayload) error {
	observability.StartProcessingJob(JobEvaluateSingle)
	ev, _ := s.sets.evaluator.Evaluate(ctx, payload.Request)
	err := s.tasks.Upsert(ctx, domain.EvaluationTask{
		SessionID:     payload.SessionID,
		QuestionIndex: payload.QuestionIndex,
		Status:        domain.TaskCompleted,
		Result:        &ev,
	})
	if err != nil {
		observability.FailJob(JobEvaluateSingle)
		return fmt.Errorf("op=service.process_single: %w", err)
	}
	observability.CompleteJob(JobEvaluateSingle)
	return nil
}

// TaskStatus lists per-question task rows for a session.
func (s *Service) TaskStatus(ctx domain.Context, sessionID string) ([]domain.EvaluationTask, error) {
	tasks, err := s.tasks.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=service.task_status: %w", err)
	}
	return tasks, nil
}

// SummaryStatus fetches the session summary record.
func (s *Service) SummaryStatus(ctx domain.Context, sessionID string) (domain.SummaryRecord, error) {
	rec, err := s.summaries.Get(ctx, sessionID)
	if err != nil {
		return domain.SummaryRecord{}, fmt.Errorf("op=service.summary_status: %w", err)
	}
	return rec, nil
}

// Report fetches the persisted aggregated report for a session.
func (s *Service) Report(ctx domain.Context, sessionID string) (domain.AggregatedReport, error) {
	report, err := s.reports.GetBySession(ctx, sessionID)
	if err != nil {
		return domain.AggregatedReport{}, fmt.Errorf("op=service.report: %w", err)
	}
	return report, nil
}

// progressWriter upserts each per-question result as it settles so polling
// clients see partial progress. Storage errors are logged, not propagated;
// the in-memory result slice is still authoritative for the report.
func (s *Service) progressWriter(ctx domain.Context, sessionID string) func(int, domain.IndividualEvaluation) {
	return func(index int, ev domain.IndividualEvaluation) {
		e := ev
		err := s.tasks.Upsert(ctx, domain.EvaluationTask{
			SessionID:     sessionID,
			QuestionIndex: index,
			Status:        domain.TaskCompleted,
			Result:        &e,
		})
		if err != nil {
			slog.Warn("progressive task write failed",
				slog.String("session_id", sessionID),
				slog.Int("question_index", index),
				slog.Any("error", err))
		}
	}
}

// persistOutcome writes the summary record and the report. Failures are
// logged; the caller already holds the in-memory report.
func (s *Service) persistOutcome(ctx domain.Context, sessionID string, report domain.AggregatedReport) {
	summary := report.OverallSummary
	if err := s.summaries.Upsert(ctx, domain.SummaryRecord{
		SessionID: sessionID,
		Status:    domain.TaskCompleted,
		Result:    &summary,
	}); err != nil {
		slog.Warn("summary write failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
	}
	if err := s.reports.Create(ctx, sessionID, report); err != nil {
		slog.Warn("report write failed",
			slog.String("session_id", sessionID),
			slog.String("evaluation_id", report.EvaluationID),
			slog.Any("error", err))
	}
}
