package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/webhook"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
	identityservice "github.com/magabrotheeeer/preuniversitario-astral/internal/services/identity"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessEvent(ctx context.Context, event models.IdentityEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func newVerifier(t *testing.T) *webhook.Verifier {
	t.Helper()
	v, err := webhook.NewVerifier("whsec_"+base64.StdEncoding.EncodeToString([]byte("secret")), 5*time.Minute)
	require.NoError(t, err)
	return v
}

func signedRequest(t *testing.T, v *webhook.Verifier, body string) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	sig, err := v.Sign("msg_1", ts, []byte(body))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", strings.NewReader(body))
	req.Header.Set(webhook.HeaderID, "msg_1")
	req.Header.Set(webhook.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(webhook.HeaderSignature, sig)
	return req
}

func TestIdentityWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := newVerifier(t)
	userCreated := `{"type":"user.created","object":"event","data":{"id":"user_1"}}`

	tests := []struct {
		name           string
		request        func() *http.Request
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "событие обработано",
			request: func() *http.Request { return signedRequest(t, verifier, userCreated) },
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(e models.IdentityEvent) bool {
					return e.Type == models.EventUserCreated && string(e.Data) == `{"id":"user_1"}`
				})).Return(true, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"handled":true}}`,
		},
		{
			name: "неверная подпись",
			request: func() *http.Request {
				req := signedRequest(t, verifier, userCreated)
				req.Header.Set(webhook.HeaderSignature, "v1,Zm9v")
				return req
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `invalid signature`,
		},
		{
			name: "нет заголовков",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", strings.NewReader(userCreated))
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `invalid signature`,
		},
		{
			name:           "подписанный мусор",
			request:        func() *http.Request { return signedRequest(t, verifier, `not json`) },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "нет типа события",
			request:        func() *http.Request { return signedRequest(t, verifier, `{"data":{}}`) },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Type is a required field`,
		},
		{
			name:    "неверные данные события",
			request: func() *http.Request { return signedRequest(t, verifier, userCreated) },
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.Anything).
					Return(true, fmt.Errorf("op: %w", identityservice.ErrInvalidPayload)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid event payload`,
		},
		{
			name:    "ошибка сервиса",
			request: func() *http.Request { return signedRequest(t, verifier, userCreated) },
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.Anything).Return(true, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not process event`,
		},
		{
			name:    "неизвестное событие",
			request: func() *http.Request { return signedRequest(t, verifier, `{"type":"session.created","data":{}}`) },
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.Anything).Return(false, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"handled":false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger, svc, verifier).ServeHTTP(w, tt.request())

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
