package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/jwt"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/review"
)

type fakeVerifier struct{}

func (fakeVerifier) ParseToken(token string) (*jwt.SessionClaims, error) {
	if token == "" || token == "bad" {
		return nil, errors.New("invalid token")
	}
	c := &jwt.SessionClaims{}
	c.Subject = token
	return c, nil
}

type fakeAccess struct{ paid map[string]bool }

func (f fakeAccess) State(_ context.Context, externalID string) (access.State, error) {
	return access.State{HasPaidPlan: f.paid[externalID], HasAccess: f.paid[externalID]}, nil
}

type fakeReview struct{}

func (fakeReview) Items(context.Context, string) ([]review.Item, error) {
	return []review.Item{{QuizID: "q1", Priority: review.PriorityHigh}}, nil
}

func (fakeReview) MarkReviewed(context.Context, string, string, float64) (string, error) {
	return "event-1", nil
}

type fakeIdentity struct{}

func (fakeIdentity) ProcessEvent(context.Context, models.IdentityEvent) (bool, error) {
	return true, nil
}

type fakeWebhook struct{}

func (fakeWebhook) Verify(http.Header, []byte) error { return errors.New("invalid signature") }

func newRouter() http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Access:        fakeAccess{paid: map[string]bool{"paid_user": true}},
		Review:        fakeReview{},
		Identity:      fakeIdentity{},
		TokenVerifier: fakeVerifier{},
		Webhook:       fakeWebhook{},
		RateRPS:       100,
		RateBurst:     100,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
	return r
}

func TestRoutes(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
		expectedBody   string
	}{
		{name: "проверка здоровья", method: http.MethodGet, path: "/api/v1/health", expectedStatus: http.StatusOK, expectedBody: `"status":"ok"`},
		{name: "доступ без токена", method: http.MethodGet, path: "/api/v1/me/access", expectedStatus: http.StatusUnauthorized},
		{name: "доступ с неверным токеном", method: http.MethodGet, path: "/api/v1/me/access", token: "bad", expectedStatus: http.StatusUnauthorized},
		{name: "состояние доступа бесплатного пользователя", method: http.MethodGet, path: "/api/v1/me/access", token: "free_user", expectedStatus: http.StatusOK, expectedBody: `"has_access":false`},
		{name: "очередь повторения без доступа", method: http.MethodGet, path: "/api/v1/review", token: "free_user", expectedStatus: http.StatusForbidden},
		{name: "очередь повторения платного пользователя", method: http.MethodGet, path: "/api/v1/review", token: "paid_user", expectedStatus: http.StatusOK, expectedBody: `"quiz_id":"q1"`},
		{name: "отметка без доступа", method: http.MethodPost, path: "/api/v1/review/mark", token: "free_user", expectedStatus: http.StatusForbidden},
		{name: "вебхук с неверной подписью", method: http.MethodPost, path: "/api/v1/webhooks/identity", expectedStatus: http.StatusUnauthorized},
		{name: "метрики", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "неизвестный маршрут", method: http.MethodGet, path: "/api/v1/subscriptions", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
		})
	}
}
