// Package jwt проверяет сессионные токены провайдера идентификации.
//
// Токены подписаны RS256. Поле sub содержит внешний идентификатор пользователя,
// org_id и org_role заполняются, когда у сессии есть активная организация.
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims описывает данные сессионного токена.
type SessionClaims struct {
	OrgID   string `json:"org_id,omitempty"`
	OrgRole string `json:"org_role,omitempty"`
	jwt.RegisteredClaims
}
