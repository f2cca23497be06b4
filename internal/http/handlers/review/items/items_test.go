package items

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/middlewarectx"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/review"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/storage/repository"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Items(ctx context.Context, externalID string) ([]review.Item, error) {
	args := m.Called(ctx, externalID)
	if res := args.Get(0); res != nil {
		return res.([]review.Item), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestItemsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная выдача очереди",
			setupMock: func(m *MockService) {
				m.On("Items", mock.Anything, "user_1").Return([]review.Item{{
					QuizID: "q1", Title: "Álgebra", Subject: "PAES", LastScore: 30, DaysSince: 5, Priority: review.PriorityHigh,
				}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"last_score":30,"days_since":5,"priority":"high"`,
		},
		{
			name: "пустая очередь",
			setupMock: func(m *MockService) {
				m.On("Items", mock.Anything, "user_1").Return(nil, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"items":[]}}`,
		},
		{
			name: "пользователь не найден",
			setupMock: func(m *MockService) {
				m.On("Items", mock.Anything, "user_1").Return(nil, fmt.Errorf("op: %w", repository.ErrUserNotFound)).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"user not found"}`,
		},
		{
			name: "ошибка сервиса",
			setupMock: func(m *MockService) {
				m.On("Items", mock.Anything, "user_1").Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not build review queue"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/review", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.ExternalID, "user_1"))
			w := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
