//go:build integration

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/migrations"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUser(t *testing.T, externalID, plan string) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO users (external_id, name, plan) VALUES ($1, $2, $3) RETURNING id`,
		externalID, "Test User", plan).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateQuiz создает тестовый тест и возвращает его ID
func (f *TestDataFactory) CreateQuiz(t *testing.T, title, subject string) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO quizzes (title, subject, type) VALUES ($1, $2, 'quiz') RETURNING id`,
		title, subject).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateAttempt создает попытку прохождения теста
func (f *TestDataFactory) CreateAttempt(t *testing.T, userID, quizID string, score float64, completedAt int64) {
	_, err := f.storage.DB.Exec(`INSERT INTO attempts (user_id, quiz_id, score, completed_at) VALUES ($1, $2, $3, $4)`,
		userID, quizID, score, completedAt)
	require.NoError(t, err)
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for i := 0; i < 10; i++ {
		storage, err = New(dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to connect to database")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}
