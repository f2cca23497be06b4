// Package state реализует HTTP-обработчик, возвращающий состояние доступа
// текущего пользователя.
package state

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/middlewarectx"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/response"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
)

// Service описывает интерфейс получения состояния доступа.
type Service interface {
	State(ctx context.Context, externalID string) (access.State, error)
}

// Handler обрабатывает запросы состояния доступа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние доступа
// @Description Возвращает план, пробный период и итоговое решение о доступе к платным возможностям.
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /me/access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.state"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	externalID, ok := middlewarectx.ExternalIDFromContext(r.Context())
	if !ok {
		log.Error("external id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	state, err := h.service.State(r.Context(), externalID)
	if err != nil {
		log.Error("failed to resolve access state", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve access state"))
		return
	}

	log.Debug("access state resolved", slog.Bool("has_access", state.HasAccess))
	render.JSON(w, r, response.StatusOKWithData(state))
}
