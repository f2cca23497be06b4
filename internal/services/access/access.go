// Package services содержит сервис разрешения доступа: загрузку профиля
// пользователя из кеша или хранилища и вызов резолвера.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/storage/repository"
)

// ProfileRepository определяет методы хранилища, нужные для профиля доступа.
type ProfileRepository interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	ListMemberships(ctx context.Context, userExternalID string) ([]access.Membership, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Metrics учитывает решения о доступе.
type Metrics interface {
	AccessDecision(granted bool)
}

// AccessService разрешает доступ пользователей к платным возможностям.
type AccessService struct {
	repo     ProfileRepository
	cache    Cache
	resolver *access.Resolver
	metrics  Metrics
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewAccessService создает новый экземпляр AccessService.
func NewAccessService(repo ProfileRepository, cache Cache, resolver *access.Resolver,
	metrics Metrics, ttl time.Duration, log *slog.Logger) *AccessService {
	return &AccessService{
		repo:     repo,
		cache:    cache,
		resolver: resolver,
		metrics:  metrics,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// ProfileKey возвращает ключ кеша профиля доступа.
func ProfileKey(externalID string) string {
	return "access:profile:" + externalID
}

// State возвращает состояние доступа пользователя на текущий момент.
// Неизвестный пользователь получает пустой профиль без доступа.
func (s *AccessService) State(ctx context.Context, externalID string) (access.State, error) {
	const op = "services.access.State"

	profile, err := s.Profile(ctx, externalID)
	if err != nil {
		return access.State{}, fmt.Errorf("%s: %w", op, err)
	}

	var trial access.RawInstant
	if profile.TrialEndsAt.Valid {
		trial = access.InstantFromNumber(profile.TrialEndsAt.Seconds)
	}

	state := s.resolver.Resolve(access.Input{
		Plan:         profile.Plan,
		TrialEndsAt:  trial,
		Memberships:  profile.Memberships,
		NowInSeconds: s.now().Unix(),
	})
	if s.metrics != nil {
		s.metrics.AccessDecision(state.HasAccess)
	}
	return state, nil
}

// Profile загружает профиль доступа из кеша, а при промахе из хранилища.
func (s *AccessService) Profile(ctx context.Context, externalID string) (*models.AccessProfile, error) {
	const op = "services.access.Profile"
	key := ProfileKey(externalID)

	var cached models.AccessProfile
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	profile := &models.AccessProfile{ExternalID: externalID}
	user, err := s.repo.GetUserByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		s.log.Info("access requested for unknown user", slog.String("external_id", externalID))
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	default:
		profile.Plan = user.Plan
		profile.TrialEndsAt = user.TrialEndsAt
	}

	memberships, err := s.repo.ListMemberships(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profile.Memberships = memberships

	if err := s.cache.Set(ctx, key, profile, s.ttl); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", key), sl.Err(err))
	}
	return profile, nil
}

// Invalidate удаляет профили пользователей из кеша.
func (s *AccessService) Invalidate(ctx context.Context, externalIDs ...string) error {
	const op = "services.access.Invalidate"
	if len(externalIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(externalIDs))
	for _, id := range externalIDs {
		keys = append(keys, ProfileKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
