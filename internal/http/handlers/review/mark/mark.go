// Package mark реализует HTTP-обработчик отметки о пройденном повторении.
//
// Handler принимает JSON с идентификатором теста и баллом, валидирует его
// и записывает событие прогресса через сервис. Попытки не изменяются.
package mark

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/middlewarectx"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/response"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	reviewservice "github.com/magabrotheeeer/preuniversitario-astral/internal/services/review"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/storage/repository"
)

// Service описывает интерфейс записи результата повторения.
type Service interface {
	MarkReviewed(ctx context.Context, externalID, quizID string, score float64) (string, error)
}

// Handler обрабатывает запросы отметки о повторении.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис очереди повторения
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отметить повторение
// @Description Записывает событие прогресса с баллом повторения.
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ReviewRequest true "Тест и балл от 0 до 1"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Нет доступа"
// @Failure 404 {object} response.ErrorResponse "Тест не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse
// @Router /review/mark [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.review.mark"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	externalID, ok := middlewarectx.ExternalIDFromContext(r.Context())
	if !ok {
		log.Error("external id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := h.service.MarkReviewed(r.Context(), externalID, req.QuizID, *req.Score)
	switch {
	case errors.Is(err, reviewservice.ErrQuizNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("quiz not found"))
		return
	case errors.Is(err, repository.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	case err != nil:
		log.Error("failed to mark review", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not mark review"))
		return
	}

	log.Info("review marked", slog.String("event_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"event_id": id,
	}))
}
