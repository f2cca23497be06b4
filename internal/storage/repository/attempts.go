package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/review"
)

// ListAttempts возвращает историю попыток пользователя вместе с данными теста.
// Попытки удалённых тестов не возвращаются.
func (s *Storage) ListAttempts(ctx context.Context, userID string) ([]review.Attempt, error) {
	const op = "storage.ListAttempts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT q.id, q.title, q.subject, q.type, a.score, a.completed_at
			  FROM attempts a
			  JOIN quizzes q ON q.id = a.quiz_id
			  WHERE a.user_id = $1
			  ORDER BY a.completed_at`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []review.Attempt
	for rows.Next() {
		var a review.Attempt
		if err := rows.Scan(&a.QuizID, &a.Title, &a.Subject, &a.Type, &a.Score, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// InsertProgressEvent добавляет событие прогресса.
func (s *Storage) InsertProgressEvent(ctx context.Context, event models.ProgressEvent) error {
	const op = "storage.InsertProgressEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO progress_events (id, user_id, subject, kind, value, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.DB.ExecContext(ctx, query,
		event.ID, event.UserID, event.Subject, event.Kind, event.Value, event.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// QuizExists проверяет, что тест существует.
func (s *Storage) QuizExists(ctx context.Context, quizID string) (bool, error) {
	const op = "storage.QuizExists"
	var exists bool
	if err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, quizID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
