package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/middlewarectx"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) State(ctx context.Context, externalID string) (access.State, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(access.State), args.Error(1)
}

func TestStateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		externalID     string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:       "пробный период",
			externalID: "user_1",
			setupMock: func(m *MockService) {
				m.On("State", mock.Anything, "user_1").Return(access.State{
					PaidPlans:      []string{"pro"},
					Plan:           access.PlanTrial,
					TrialEndsAt:    access.Some(1700438400),
					HasActiveTrial: true,
					HasAccess:      true,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"trial_ends_at":1700438400,"has_paid_plan":false,"has_membership_paid_plan":false,"has_active_trial":true,"has_access":true`,
		},
		{
			name:           "нет пользователя",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:       "ошибка сервиса",
			externalID: "user_1",
			setupMock: func(m *MockService) {
				m.On("State", mock.Anything, "user_1").Return(access.State{}, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not resolve access state"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me/access", nil)
			if tt.externalID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.ExternalID, tt.externalID))
			}
			w := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
