// Package services синхронизирует локальных пользователей, планы, пробные
// периоды и членства в организациях с событиями провайдера идентификации.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
)

// ErrInvalidPayload возвращается для данных события неверной формы.
var ErrInvalidPayload = errors.New("invalid event payload")

// Repository определяет методы хранилища для синхронизации.
type Repository interface {
	UpsertUser(ctx context.Context, user models.User) (string, error)
	DeleteUserByExternalID(ctx context.Context, externalID string) (int, error)
	SetPlanByExternalID(ctx context.Context, externalID, plan string) (int, error)
	SetTrialByExternalID(ctx context.Context, externalID string, trialEndsAt int64) (int, error)
	UpsertOrganization(ctx context.Context, org access.Organization) error
	DeleteOrganization(ctx context.Context, orgID string) ([]string, error)
	ListOrganizationMembers(ctx context.Context, orgID string) ([]string, error)
	AddMembership(ctx context.Context, orgID, userExternalID string) error
	RemoveMembership(ctx context.Context, orgID, userExternalID string) error
}

// Invalidator сбрасывает закешированные профили доступа.
type Invalidator interface {
	Invalidate(ctx context.Context, externalIDs ...string) error
}

// Metrics учитывает обработанные события.
type Metrics interface {
	WebhookEvent(eventType, outcome string)
}

// IdentityService обрабатывает события провайдера идентификации.
type IdentityService struct {
	repo      Repository
	cache     Invalidator
	metrics   Metrics
	trialDays int
	now       func() time.Time
	log       *slog.Logger
}

// NewIdentityService создает новый экземпляр IdentityService.
func NewIdentityService(repo Repository, cache Invalidator, metrics Metrics, trialDays int, log *slog.Logger) *IdentityService {
	return &IdentityService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		trialDays: trialDays,
		now:       time.Now,
		log:       log,
	}
}

// ProcessEvent применяет событие. Неизвестные типы игнорируются, handled == false.
func (s *IdentityService) ProcessEvent(ctx context.Context, event models.IdentityEvent) (handled bool, err error) {
	const op = "services.identity.ProcessEvent"
	log := s.log.With(slog.String("op", op), slog.String("event", event.Type))

	var affected []string
	switch event.Type {
	case models.EventUserCreated, models.EventUserUpdated:
		affected, err = s.upsertUser(ctx, event)
	case models.EventUserDeleted:
		affected, err = s.deleteUser(ctx, event.Data)
	case models.EventSubscriptionCreated, models.EventSubscriptionUpdated,
		models.EventSubscriptionActive, models.EventSubscriptionPastDue:
		affected, err = s.setPlan(ctx, event.Data)
	case models.EventOrganizationCreated, models.EventOrganizationUpdated:
		affected, err = s.upsertOrganization(ctx, event.Data)
	case models.EventOrganizationDeleted:
		affected, err = s.deleteOrganization(ctx, event.Data)
	case models.EventOrganizationMembershipCreated, models.EventOrganizationMembershipUpdated:
		affected, err = s.changeMembership(ctx, event.Data, true)
	case models.EventOrganizationMembershipDeleted:
		affected, err = s.changeMembership(ctx, event.Data, false)
	default:
		log.Debug("ignored webhook event")
		s.count(event.Type, "ignored")
		return false, nil
	}
	if err != nil {
		s.count(event.Type, "failed")
		return true, fmt.Errorf("%s: %w", op, err)
	}

	if len(affected) > 0 {
		if err := s.cache.Invalidate(ctx, affected...); err != nil {
			log.Warn("failed to invalidate access profiles", sl.Err(err))
		}
	}
	s.count(event.Type, "processed")
	log.Info("webhook event processed", slog.Int("affected_users", len(affected)))
	return true, nil
}

func (s *IdentityService) count(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookEvent(eventType, outcome)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

func (s *IdentityService) upsertUser(ctx context.Context, event models.IdentityEvent) ([]string, error) {
	var u models.IdentityUser
	if err := decode(event.Data, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	}

	meta := u.PublicMetadata
	trialEndsAt := access.CoerceTrialEndsAt(meta.TrialEndsAt)
	if _, err := s.repo.UpsertUser(ctx, models.User{
		ExternalID:  u.ID,
		Name:        u.DisplayName(),
		Role:        meta.Role,
		Plan:        meta.Plan,
		TrialEndsAt: trialEndsAt,
	}); err != nil {
		return nil, err
	}

	if event.Type == models.EventUserCreated {
		hasPlan := meta.Plan != "" && meta.Plan != access.PlanFree
		if !hasPlan && !trialEndsAt.Valid {
			ends := s.now().Add(time.Duration(s.trialDays) * 24 * time.Hour).Unix()
			if _, err := s.repo.SetTrialByExternalID(ctx, u.ID, ends); err != nil {
				return nil, err
			}
			s.log.Info("trial started", slog.String("external_id", u.ID), slog.Int64("trial_ends_at", ends))
		}
	}
	return []string{u.ID}, nil
}

func (s *IdentityService) deleteUser(ctx context.Context, data json.RawMessage) ([]string, error) {
	var d models.IdentityDeleted
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	}
	n, err := s.repo.DeleteUserByExternalID(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		s.log.Debug("deleted user was not stored", slog.String("external_id", d.ID))
	}
	return []string{d.ID}, nil
}

func (s *IdentityService) setPlan(ctx context.Context, data json.RawMessage) ([]string, error) {
	var sub models.IdentitySubscription
	if err := decode(data, &sub); err != nil {
		return nil, err
	}
	plan := sub.PlanSlug()
	if sub.PayerID == "" || plan == "" {
		return nil, nil
	}
	n, err := s.repo.SetPlanByExternalID(ctx, sub.PayerID, plan)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		s.log.Debug("subscription for unknown user", slog.String("external_id", sub.PayerID))
	}
	return []string{sub.PayerID}, nil
}

func (s *IdentityService) upsertOrganization(ctx context.Context, data json.RawMessage) ([]string, error) {
	var org access.Organization
	if err := decode(data, &org); err != nil {
		return nil, err
	}
	if org.ID == "" {
		return nil, fmt.Errorf("%w: missing organization id", ErrInvalidPayload)
	}
	if err := s.repo.UpsertOrganization(ctx, org); err != nil {
		return nil, err
	}
	return s.repo.ListOrganizationMembers(ctx, org.ID)
}

func (s *IdentityService) deleteOrganization(ctx context.Context, data json.RawMessage) ([]string, error) {
	var d models.IdentityDeleted
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.ID == "" {
		return nil, fmt.Errorf("%w: missing organization id", ErrInvalidPayload)
	}
	return s.repo.DeleteOrganization(ctx, d.ID)
}

func (s *IdentityService) changeMembership(ctx context.Context, data json.RawMessage, add bool) ([]string, error) {
	var m models.IdentityMembership
	if err := decode(data, &m); err != nil {
		return nil, err
	}
	orgID, userID := m.Organization.ID, m.PublicUserData.UserID
	if orgID == "" || userID == "" {
		return nil, fmt.Errorf("%w: missing organization or user id", ErrInvalidPayload)
	}

	if add {
		// событие членства приходит с актуальными метаданными организации
		if m.Organization.PublicMetadata != nil {
			if err := s.repo.UpsertOrganization(ctx, m.Organization); err != nil {
				return nil, err
			}
		}
		if err := s.repo.AddMembership(ctx, orgID, userID); err != nil {
			return nil, err
		}
	} else if err := s.repo.RemoveMembership(ctx, orgID, userID); err != nil {
		return nil, err
	}
	return []string{userID}, nil
}
