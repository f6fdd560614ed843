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

// SummaryRepo persists per-session overall summaries. Summaries live in
// their own table keyed by session id alone; they are not question tasks.
type SummaryRepo struct{ Pool PgxPool }

// NewSummaryRepo constructs a SummaryRepo with the given pool.
func NewSummaryRepo(p PgxPool) *SummaryRepo { return &SummaryRepo{Pool: p} }

// Upsert writes the session summary (last-write-wins).
func (r *SummaryRepo) Upsert(ctx domain.Context, s domain.SummaryRecord) error {
	tracer := otel.Tracer("repo.summaries")
	ctx, span := tracer.Start(ctx, "summaries.Upsert")
	defer span.End()
	var result []byte
	if s.Result != nil {
		b, err := json.Marshal(s.Result)
		if err != nil {
			return fmt.Errorf("op=summary.upsert marshal: %w", err)
		}
		result = b
	}
	q := `INSERT INTO evaluation_summaries (session_id, status, result, error_message, updated_at)
	      VALUES ($1,$2,$3,$4,$5)
	      ON CONFLICT (session_id)
	      DO UPDATE SET status=EXCLUDED.status, result=EXCLUDED.result, error_message=EXCLUDED.error_message, updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, s.SessionID, s.Status, result, s.ErrorMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=summary.upsert: %w", err)
	}
	return nil
}

// Get loads the session summary.
func (r *SummaryRepo) Get(ctx domain.Context, sessionID string) (domain.SummaryRecord, error) {
	tracer := otel.Tracer("repo.summaries")
	ctx, span := tracer.Start(ctx, "summaries.Get")
	defer span.End()
	q := `SELECT session_id, status, result, COALESCE(error_message,''), updated_at
	      FROM evaluation_summaries WHERE session_id=$1`
	var s domain.SummaryRecord
	var result []byte
	err := r.Pool.QueryRow(ctx, q, sessionID).Scan(&s.SessionID, &s.Status, &result, &s.ErrorMessage, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SummaryRecord{}, fmt.Errorf("op=summary.get: %w", domain.ErrNotFound)
		}
		return domain.SummaryRecord{}, fmt.Errorf("op=summary.get: %w", err)
	}
	if len(result) > 0 {
		var sum domain.OverallSummary
		if err := json.Unmarshal(result, &sum); err != nil {
			return domain.SummaryRecord{}, fmt.Errorf("op=summary.get decode: %w", err)
		}
		s.Result = &sum
	}
	return s, nil
}
