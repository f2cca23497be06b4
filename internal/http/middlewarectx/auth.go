// Package middlewarectx содержит HTTP middleware: проверку сессионного токена,
// проверку доступа к платным маршрутам и ограничение частоты запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization и кладёт в контекст
// внешний идентификатор пользователя и активную организацию.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/response"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/jwt"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// ExternalID - ключ для идентификатора пользователя у провайдера
	ExternalID Key = "external_id"
	// OrgID - ключ для активной организации сессии
	OrgID Key = "org_id"
)

// TokenVerifier описывает проверку сессионного токена.
type TokenVerifier interface {
	ParseToken(tokenStr string) (*jwt.SessionClaims, error)
}

// ExternalIDFromContext возвращает идентификатор пользователя из контекста.
func ExternalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ExternalID).(string)
	return id, ok && id != ""
}

// JWTMiddleware возвращает HTTP middleware, который проверяет токен в заголовке Authorization.
// При ошибке отвечает 401 Unauthorized.
func JWTMiddleware(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := verifier.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), ExternalID, claims.Subject)
			if claims.OrgID != "" {
				ctx = context.WithValue(ctx, OrgID, claims.OrgID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
