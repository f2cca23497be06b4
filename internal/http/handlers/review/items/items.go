// Package items реализует HTTP-обработчик очереди повторения тестов.
package items

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/middlewarectx"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/response"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/review"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/storage/repository"
)

// Service описывает интерфейс получения очереди повторения.
type Service interface {
	Items(ctx context.Context, externalID string) ([]review.Item, error)
}

// Handler обрабатывает запросы очереди повторения.
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
// @Summary Очередь повторения
// @Description Возвращает до 5 тестов, которые пора повторить, от самых срочных.
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /review [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.review.items"
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

	res, err := h.service.Items(r.Context(), externalID)
	if errors.Is(err, repository.ErrUserNotFound) {
		log.Warn("user not found", slog.String("external_id", externalID))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to build review queue", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build review queue"))
		return
	}
	if res == nil {
		res = []review.Item{}
	}

	log.Info("review queue served", slog.Int("count", len(res)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"items": res,
	}))
}
