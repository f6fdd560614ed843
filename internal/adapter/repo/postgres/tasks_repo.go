package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

// TaskRepo persists per-question evaluation tasks keyed by
// (session_id, question_index).
type TaskRepo struct{ Pool PgxPool }

// NewTaskRepo constructs a TaskRepo with the given pool.
func NewTaskRepo(p PgxPool) *TaskRepo { return &TaskRepo{Pool: p} }

// CreatePending inserts a pending row unless one already exists for the key.
// When the row exists it is returned with created=false, giving callers the
// idempotent-enqueue semantics.
func (r *TaskRepo) CreatePending(ctx domain.Context, sessionID string, questionIndex int) (*domain.EvaluationTask, bool, error) {
	tracer := otel.Tracer("repo.tasks")
	ctx, span := tracer.Start(ctx, "tasks.CreatePending")
	defer span.End()
	now := time.Now().UTC()
	q := `INSERT INTO evaluation_tasks (session_id, question_index, status, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$4)
	      ON CONFLICT (session_id, question_index) DO NOTHING`
	tag, err := r.Pool.Exec(ctx, q, sessionID, questionIndex, domain.TaskPending, now)
	if err != nil {
		return nil, false, fmt.Errorf("op=task.create_pending: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil, true, nil
	}
	existing, err := r.Get(ctx, sessionID, questionIndex)
	if err != nil {
		return nil, false, fmt.Errorf("op=task.create_pending: %w", err)
	}
	return &existing, false, nil
}

// Upsert writes a task result; re-running the same key overwrites
// (last-write-wins).
func (r *TaskRepo) Upsert(ctx domain.Context, t domain.EvaluationTask) error {
	tracer := otel.Tracer("repo.tasks")
	ctx, span := tracer.Start(ctx, "tasks.Upsert")
	defer span.End()
	var result []byte
	if t.Result != nil {
		b, err := json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("op=task.upsert marshal: %w", err)
		}
		result = b
	}
	q := `INSERT INTO evaluation_tasks (session_id, question_index, status, result, error_message, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$6)
	      ON CONFLICT (session_id, question_index)
	      DO UPDATE SET status=EXCLUDED.status, result=EXCLUDED.result, error_message=EXCLUDED.error_message, updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, t.SessionID, t.QuestionIndex, t.Status, result, t.ErrorMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=task.upsert: %w", err)
	}
	return nil
}

// ListBySession returns a session's tasks ordered by question index.
func (r *TaskRepo) ListBySession(ctx domain.Context, sessionID string) ([]domain.EvaluationTask, error) {
	tracer := otel.Tracer("repo.tasks")
	ctx, span := tracer.Start(ctx, "tasks.ListBySession")
	defer span.End()
	q := `SELECT session_id, question_index, status, result, COALESCE(error_message,''), created_at, updated_at
	      FROM evaluation_tasks WHERE session_id=$1 ORDER BY question_index`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=task.list: %w", err)
	}
	defer rows.Close()
	var tasks []domain.EvaluationTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("op=task.list: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=task.list: %w", err)
	}
	return tasks, nil
}

// Get loads one task row.
func (r *TaskRepo) Get(ctx domain.Context, sessionID string, questionIndex int) (domain.EvaluationTask, error) {
	tracer := otel.Tracer("repo.tasks")
	ctx, span := tracer.Start(ctx, "tasks.Get")
	defer span.End()
	q := `SELECT session_id, question_index, status, result, COALESCE(error_message,''), created_at, updated_at
	      FROM evaluation_tasks WHERE session_id=$1 AND question_index=$2`
	t, err := scanTask(r.Pool.QueryRow(ctx, q, sessionID, questionIndex))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EvaluationTask{}, fmt.Errorf("op=task.get: %w", domain.ErrNotFound)
		}
		return domain.EvaluationTask{}, fmt.Errorf("op=task.get: %w", err)
	}
	return t, nil
}

func scanTask(row pgx.Row) (domain.EvaluationTask, error) {
	var t domain.EvaluationTask
	var result []byte
	if err := row.Scan(&t.SessionID, &t.QuestionIndex, &t.Status, &result, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.EvaluationTask{}, err
	}
	if len(result) > 0 {
		var ev domain.IndividualEvaluation
		if err := json.Unmarshal(result, &ev); err != nil {
			return domain.EvaluationTask{}, fmt.Errorf("decode result: %w", err)
		}
		t.Result = &ev
	}
	return t, nil
}
