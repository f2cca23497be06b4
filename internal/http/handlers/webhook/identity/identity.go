// Package identity реализует приём вебхуков провайдера идентификации.
//
// Handler проверяет подпись запроса, разбирает конверт события и передаёт
// его сервису синхронизации пользователей, планов и организаций.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/response"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/sl"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	identityservice "github.com/magabrotheeeer/preuniversitario-astral/internal/services/identity"
)

const maxBodyBytes = 1 << 20

// Service описывает интерфейс обработки событий.
type Service interface {
	ProcessEvent(ctx context.Context, event models.IdentityEvent) (bool, error)
}

// Verifier проверяет подпись вебхука.
type Verifier interface {
	Verify(header http.Header, body []byte) error
}

type Handler struct {
	log      *slog.Logger // Логгер для записи информации и ошибок
	service  Service
	verifier Verifier // Проверка подписи svix-*
	validate *validator.Validate
}

func New(log *slog.Logger, service Service, verifier Verifier) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вебхук провайдера идентификации
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /webhooks/identity [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.identity"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer r.Body.Close()

	if err := h.verifier.Verify(r.Header, body); err != nil {
		log.Warn("invalid or missing webhook signature", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event models.IdentityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(event); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	handled, err := h.service.ProcessEvent(r.Context(), event)
	if errors.Is(err, identityservice.ErrInvalidPayload) {
		log.Error("invalid event payload", slog.String("event", event.Type), sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event payload"))
		return
	}
	if err != nil {
		log.Error("failed to process webhook event", slog.String("event", event.Type), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process event"))
		return
	}

	log.Info("webhook processed", slog.String("event", event.Type), slog.Bool("handled", handled))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"handled": handled,
	}))
}
