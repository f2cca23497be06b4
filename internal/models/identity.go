package models

import (
	"encoding/json"
	"strings"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
)

// Типы событий вебхука провайдера идентификации.
const (
	EventUserCreated                   = "user.created"
	EventUserUpdated                   = "user.updated"
	EventUserDeleted                   = "user.deleted"
	EventSubscriptionCreated           = "subscription.created"
	EventSubscriptionUpdated           = "subscription.updated"
	EventSubscriptionActive            = "subscription.active"
	EventSubscriptionPastDue           = "subscription.past_due"
	EventOrganizationCreated           = "organization.created"
	EventOrganizationUpdated           = "organization.updated"
	EventOrganizationDeleted           = "organization.deleted"
	EventOrganizationMembershipCreated = "organizationMembership.created"
	EventOrganizationMembershipUpdated = "organizationMembership.updated"
	EventOrganizationMembershipDeleted = "organizationMembership.deleted"
)

// IdentityEvent - конверт события вебхука.
type IdentityEvent struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// IdentityUser - данные пользователя в событиях user.*.
type IdentityUser struct {
	ID             string          `json:"id"`
	FirstName      *string         `json:"first_name"`
	LastName       *string         `json:"last_name"`
	PublicMetadata access.Metadata `json:"public_metadata"`
}

// DisplayName склеивает имя и фамилию, пропуская пустые части.
func (u IdentityUser) DisplayName() string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{u.FirstName, u.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}

// IdentitySubscription - данные событий subscription.*.
type IdentitySubscription struct {
	PayerID string `json:"payer_id"`
	Items   []struct {
		Plan *struct {
			Slug string `json:"slug"`
		} `json:"plan"`
	} `json:"items"`
}

// PlanSlug возвращает план первой позиции подписки.
func (s IdentitySubscription) PlanSlug() string {
	if len(s.Items) == 0 || s.Items[0].Plan == nil {
		return ""
	}
	return s.Items[0].Plan.Slug
}

// IdentityMembership - данные событий organizationMembership.*.
type IdentityMembership struct {
	Organization   access.Organization `json:"organization"`
	PublicUserData struct {
		UserID string `json:"user_id"`
	} `json:"public_user_data"`
}

// IdentityDeleted - данные событий удаления.
type IdentityDeleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
