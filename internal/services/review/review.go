// Package services содержит сервис очереди повторения тестов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/review"
)

var (
	// ErrInvalidScore возвращается для балла вне отрезка [0, 1].
	ErrInvalidScore = errors.New("score must be between 0 and 1")
	// ErrQuizNotFound возвращается, если теста не существует.
	ErrQuizNotFound = errors.New("quiz not found")
)

// Repository определяет методы хранилища для очереди повторения.
type Repository interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	ListAttempts(ctx context.Context, userID string) ([]review.Attempt, error)
	QuizExists(ctx context.Context, quizID string) (bool, error)
	InsertProgressEvent(ctx context.Context, event models.ProgressEvent) error
}

// Metrics учитывает размер выданных очередей.
type Metrics interface {
	ReviewQueue(size int)
}

// ReviewService формирует очередь повторения и записывает результаты.
type ReviewService struct {
	repo    Repository
	metrics Metrics
	now     func() time.Time
	log     *slog.Logger
}

// NewReviewService создает новый экземпляр ReviewService.
func NewReviewService(repo Repository, metrics Metrics, log *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:    repo,
		metrics: metrics,
		now:     time.Now,
		log:     log,
	}
}

// Items возвращает тесты, которые пользователю пора повторить.
func (s *ReviewService) Items(ctx context.Context, externalID string) ([]review.Item, error) {
	const op = "services.review.Items"

	user, err := s.repo.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	attempts, err := s.repo.ListAttempts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items := review.Schedule(attempts, s.now().Unix())
	if s.metrics != nil {
		s.metrics.ReviewQueue(len(items))
	}
	return items, nil
}

// MarkReviewed записывает событие прогресса о пройденном повторении.
// Сами попытки не изменяются.
func (s *ReviewService) MarkReviewed(ctx context.Context, externalID, quizID string, score float64) (string, error) {
	const op = "services.review.MarkReviewed"

	if math.IsNaN(score) || score < 0 || score > 1 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidScore)
	}

	user, err := s.repo.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.repo.QuizExists(ctx, quizID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return "", fmt.Errorf("%s: %w", op, ErrQuizNotFound)
	}

	event := models.ProgressEvent{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Subject:   models.ProgressSubjectReview,
		Kind:      models.ProgressKindQuizCompleted,
		Value:     score,
		CreatedAt: s.now().Unix(),
	}
	if err := s.repo.InsertProgressEvent(ctx, event); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("review marked",
		slog.String("user_id", user.ID),
		slog.String("quiz_id", quizID),
		slog.Float64("score", score))
	return event.ID, nil
}
