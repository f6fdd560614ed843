package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

// QuestionRepo stores the question bank with its coaching material.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// FindHint looks up coaching material by exact question text.
func (r *QuestionRepo) FindHint(ctx domain.Context, questionText string) (domain.QuestionHint, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.FindHint")
	defer span.End()
	q := `SELECT question_text, COALESCE(expected_answer,''), COALESCE(answer_tips,'')
	      FROM questions WHERE question_text=$1`
	var h domain.QuestionHint
	err := r.Pool.QueryRow(ctx, q, questionText).Scan(&h.QuestionText, &h.ExpectedAnswer, &h.AnswerTips)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuestionHint{}, fmt.Errorf("op=question.find_hint: %w", domain.ErrNotFound)
		}
		return domain.QuestionHint{}, fmt.Errorf("op=question.find_hint: %w", err)
	}
	return h, nil
}

// UpsertHint writes one question's coaching material (used by seeding).
func (r *QuestionRepo) UpsertHint(ctx domain.Context, h domain.QuestionHint) error {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.UpsertHint")
	defer span.End()
	q := `INSERT INTO questions (question_text, expected_answer, answer_tips)
	      VALUES ($1,$2,$3)
	      ON CONFLICT (question_text)
	      DO UPDATE SET expected_answer=EXCLUDED.expected_answer, answer_tips=EXCLUDED.answer_tips`
	_, err := r.Pool.Exec(ctx, q, h.QuestionText, h.ExpectedAnswer, h.AnswerTips)
	if err != nil {
		return fmt.Errorf("op=question.upsert_hint: %w", err)
	}
	return nil
}
