package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/response"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
)

// AccessService определяет интерфейс получения состояния доступа.
type AccessService interface {
	State(ctx context.Context, externalID string) (access.State, error)
}

// AccessMiddleware пропускает запрос только пользователям с доступом к платным
// возможностям. Без доступа отвечает 403 Forbidden.
func AccessMiddleware(log *slog.Logger, service AccessService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AccessMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			externalID, ok := ExternalIDFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			state, err := service.State(r.Context(), externalID)
			if err != nil {
				log.Error("failed to resolve access state", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !state.HasAccess {
				log.Info("access denied", slog.String("external_id", externalID), slog.String("plan", state.Plan))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("paid plan or active trial required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
