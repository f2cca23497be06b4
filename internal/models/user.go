// Package models содержит доменные структуры платформы: пользователей,
// организации, попытки прохождения тестов и события прогресса.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import (
	"time"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
)

// User представляет пользователя, синхронизированного с провайдером идентификации.
type User struct {
	ID          string         // Внутренний UUID пользователя
	ExternalID  string         // Идентификатор пользователя у провайдера идентификации
	Name        string         // Отображаемое имя
	Role        string         // Роль: student, teacher или admin
	Plan        string         // План подписки, может быть пустым
	TrialEndsAt access.Instant // Окончание пробного периода в секундах Unix
	CreatedAt   time.Time      // Дата создания записи
}

// AccessProfile - данные пользователя, нужные для разрешения доступа.
// Кешируется целиком.
type AccessProfile struct {
	ExternalID  string              `json:"external_id"`
	Plan        string              `json:"plan"`
	TrialEndsAt access.Instant      `json:"trial_ends_at"`
	Memberships []access.Membership `json:"memberships"`
}
