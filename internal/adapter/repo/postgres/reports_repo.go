package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

// ReportRepo persists aggregated reports as JSONB blobs. Reports are
// append-only; a re-evaluation creates a new row and reads return the
// latest.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo with the given pool.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

// Create stores a finished report.
func (r *ReportRepo) Create(ctx domain.Context, sessionID string, report domain.AggregatedReport) error {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Create")
	defer span.End()
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("op=report.create marshal: %w", err)
	}
	q := `INSERT INTO reports (evaluation_id, session_id, payload, created_at) VALUES ($1,$2,$3,$4)`
	_, err = r.Pool.Exec(ctx, q, report.EvaluationID, sessionID, payload, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("op=report.create: %w", err)
	}
	return nil
}

// GetBySession loads the latest report for a session.
func (r *ReportRepo) GetBySession(ctx domain.Context, sessionID string) (domain.AggregatedReport, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.GetBySession")
	defer span.End()
	q := `SELECT payload FROM reports WHERE session_id=$1 ORDER BY created_at DESC LIMIT 1`
	var payload []byte
	if err := r.Pool.QueryRow(ctx, q, sessionID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AggregatedReport{}, fmt.Errorf("op=report.get: %w", domain.ErrNotFound)
		}
		return domain.AggregatedReport{}, fmt.Errorf("op=report.get: %w", err)
	}
	report, err := decodeReportBlob(payload)
	if err != nil {
		return domain.AggregatedReport{}, fmt.Errorf("op=report.get: %w", err)
	}
	return report, nil
}

// decodeReportBlob tolerates both plain report objects and blobs that were
// double-encoded as JSON strings by earlier writers.
func decodeReportBlob(payload []byte) (domain.AggregatedReport, error) {
	parsed := gjson.ParseBytes(payload)
	if parsed.Type == gjson.String {
		unquoted, err := strconv.Unquote(string(payload))
		if err != nil {
			return domain.AggregatedReport{}, fmt.Errorf("unquote payload: %w", err)
		}
		payload = []byte(unquoted)
	}
	var report domain.AggregatedReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.AggregatedReport{}, fmt.Errorf("decode payload: %w", err)
	}
	return report, nil
}
