package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/models"
)

const userColumns = `id, external_id, name, role, plan, trial_ends_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var trialEndsAt sql.NullFloat64
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Role, &u.Plan, &trialEndsAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	if trialEndsAt.Valid {
		u.TrialEndsAt = access.Some(trialEndsAt.Float64)
	}
	return u, nil
}

func nullInstant(i access.Instant) sql.NullFloat64 {
	return sql.NullFloat64{Float64: i.Seconds, Valid: i.Valid}
}

// GetUserByExternalID возвращает пользователя по идентификатору провайдера.
func (s *Storage) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	const op = "storage.GetUserByExternalID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpsertUser создаёт пользователя или обновляет имя, роль, план и пробный
// период существующего. Возвращает внутренний ID.
func (s *Storage) UpsertUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (external_id, name, role, plan, trial_ends_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (external_id) DO UPDATE
			  SET name = EXCLUDED.name,
			      role = EXCLUDED.role,
			      plan = EXCLUDED.plan,
			      trial_ends_at = EXCLUDED.trial_ends_at
			  RETURNING id`
	var id string
	if err := s.DB.QueryRowContext(ctx, query,
		user.ExternalID, user.Name, user.Role, user.Plan, nullInstant(user.TrialEndsAt)).Scan(&id); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// DeleteUserByExternalID удаляет пользователя. Отсутствие пользователя ошибкой не считается.
func (s *Storage) DeleteUserByExternalID(ctx context.Context, externalID string) (int, error) {
	const op = "storage.DeleteUserByExternalID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE external_id = $1`, externalID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetPlanByExternalID меняет план пользователя. Возвращает число изменённых строк.
func (s *Storage) SetPlanByExternalID(ctx context.Context, externalID, plan string) (int, error) {
	const op = "storage.SetPlanByExternalID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE users SET plan = $1 WHERE external_id = $2`, plan, externalID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetTrialByExternalID переводит пользователя на пробный план до trialEndsAt.
func (s *Storage) SetTrialByExternalID(ctx context.Context, externalID string, trialEndsAt int64) (int, error) {
	const op = "storage.SetTrialByExternalID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET plan = $1, trial_ends_at = $2 WHERE external_id = $3`
	result, err := s.DB.ExecContext(ctx, query, access.PlanTrial, float64(trialEndsAt), externalID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindTrialsExpiringBetween находит пользователей на пробном плане, у которых
// пробный период заканчивается в полуинтервале (from, to].
func (s *Storage) FindTrialsExpiringBetween(ctx context.Context, from, to int64) ([]*models.User, error) {
	const op = "storage.FindTrialsExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE plan = $1 AND trial_ends_at > $2 AND trial_ends_at <= $3
			  ORDER BY trial_ends_at`
	rows, err := s.DB.QueryContext(ctx, query, access.PlanTrial, float64(from), float64(to))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListUsersWithAttempts возвращает пользователей, у которых есть хотя бы одна
// попытка, с пагинацией.
func (s *Storage) ListUsersWithAttempts(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsersWithAttempts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users u
			  WHERE EXISTS (SELECT 1 FROM attempts a WHERE a.user_id = u.id)
			  ORDER BY u.created_at, u.id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
