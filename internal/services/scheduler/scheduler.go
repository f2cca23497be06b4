// Package services содержит планировщик уведомлений о скором окончании
// пробного периода и о тестах, которые пора повторить.
//
// О пробном периоде пользователь получает одно уведомление за время жизни
// процесса: каждый проход продолжает окно с того места, где остановился
// предыдущий. После перезапуска первый проход снова просматривает всё окно,
// поэтому доставка at-least-once. Напоминание о повторении публикуется на
// каждом проходе, пока очередь пользователя не пуста.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/review"
)

// Repository определяет методы хранилища, нужные планировщику.
type Repository interface {
	FindTrialsExpiringBetween(ctx context.Context, from, to int64) ([]*models.User, error)
	ListUsersWithAttempts(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListAttempts(ctx context.Context, userID string) ([]review.Attempt, error)
}

// Publisher публикует уведомления в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Metrics учитывает опубликованные уведомления.
type Metrics interface {
	Notification(routingKey string, err error)
}

// Options - параметры планировщика.
type Options struct {
	Interval    time.Duration
	TrialWindow time.Duration
	BatchSize   int
}

// SchedulerService периодически ищет пользователей для уведомлений.
type SchedulerService struct {
	repo      Repository
	publisher Publisher
	metrics   Metrics
	opts      Options
	now       func() time.Time
	log       *slog.Logger

	mu           sync.Mutex
	trialsCursor int64 // правая граница уже обработанного окна, 0 до первого прохода
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo Repository, publisher Publisher, metrics Metrics, opts Options, log *slog.Logger) *SchedulerService {
	if opts.Interval <= 0 {
		opts.Interval = 12 * time.Hour
	}
	if opts.TrialWindow <= 0 {
		opts.TrialWindow = 24 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		now:       time.Now,
		log:       log,
	}
}

// Run выполняет проход сразу и затем каждые Interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход обеих проверок.
func (s *SchedulerService) RunOnce(ctx context.Context) {
	s.NotifyExpiringTrials(ctx)
	s.NotifyDueReviews(ctx)
}

// NotifyExpiringTrials публикует уведомления для пробных периодов,
// заканчивающихся в ближайшие TrialWindow и ещё не попавших в прошлые
// проходы. Возвращает число уведомлений.
func (s *SchedulerService) NotifyExpiringTrials(ctx context.Context) int {
	const op = "services.scheduler.NotifyExpiringTrials"
	log := s.log.With(slog.String("op", op))

	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := s.trialRange(s.now().Unix())
	if from >= to {
		return 0
	}
	users, err := s.repo.FindTrialsExpiringBetween(ctx, from, to)
	if err != nil {
		log.Error("failed to find expiring trials", sl.Err(err))
		return 0
	}
	s.trialsCursor = to
	if len(users) == 0 {
		log.Info("no expiring trials found")
		return 0
	}
	log.Info("found expiring trials", slog.Int("count", len(users)))

	sent := 0
	for _, u := range users {
		msg := models.TrialNotification{
			ID:          uuid.NewString(),
			ExternalID:  u.ExternalID,
			Name:        u.Name,
			TrialEndsAt: u.TrialEndsAt.Seconds,
		}
		if s.publish(log, rabbitmq.RoutingKeyTrialExpiring, msg) {
			sent++
		}
	}
	return sent
}

// trialRange возвращает полуинтервал (from, to] для поиска пробных периодов.
func (s *SchedulerService) trialRange(nowSec int64) (int64, int64) {
	to := nowSec + int64(s.opts.TrialWindow/time.Second)
	from := nowSec
	if s.trialsCursor > from {
		from = s.trialsCursor
	}
	return from, to
}

// NotifyDueReviews публикует уведомления пользователям с непустой очередью
// повторения. Пользователи обходятся пачками по BatchSize.
func (s *SchedulerService) NotifyDueReviews(ctx context.Context) int {
	const op = "services.scheduler.NotifyDueReviews"
	log := s.log.With(slog.String("op", op))

	nowSec := s.now().Unix()
	sent := 0
	for offset := 0; ; offset += s.opts.BatchSize {
		if ctx.Err() != nil {
			return sent
		}
		users, err := s.repo.ListUsersWithAttempts(ctx, s.opts.BatchSize, offset)
		if err != nil {
			log.Error("failed to list users", sl.Err(err))
			return sent
		}

		for _, u := range users {
			attempts, err := s.repo.ListAttempts(ctx, u.ID)
			if err != nil {
				log.Error("failed to list attempts", slog.String("user_id", u.ID), sl.Err(err))
				continue
			}
			items := review.Schedule(attempts, nowSec)
			if len(items) == 0 {
				continue
			}
			msg := models.ReviewNotification{
				ID:         uuid.NewString(),
				ExternalID: u.ExternalID,
				Items:      items,
			}
			if s.publish(log, rabbitmq.RoutingKeyReviewDue, msg) {
				sent++
			}
		}

		if len(users) < s.opts.BatchSize {
			break
		}
	}
	log.Info("review notifications published", slog.Int("count", sent))
	return sent
}

func (s *SchedulerService) publish(log *slog.Logger, routingKey string, msg any) bool {
	err := s.publisher.Publish(routingKey, msg)
	if s.metrics != nil {
		s.metrics.Notification(routingKey, err)
	}
	if err != nil {
		log.Error("failed to publish message", slog.String("routing_key", routingKey), sl.Err(err))
		return false
	}
	return true
}
