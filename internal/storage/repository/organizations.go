package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
)

// UpsertOrganization сохраняет публичные метаданные организации.
func (s *Storage) UpsertOrganization(ctx context.Context, org access.Organization) error {
	const op = "storage.UpsertOrganization"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	metadata := []byte("{}")
	if org.PublicMetadata != nil {
		var err error
		metadata, err = json.Marshal(org.PublicMetadata)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	query := `INSERT INTO organizations (id, public_metadata)
			  VALUES ($1, $2)
			  ON CONFLICT (id) DO UPDATE SET public_metadata = EXCLUDED.public_metadata`
	if _, err := s.DB.ExecContext(ctx, query, org.ID, metadata); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteOrganization удаляет организацию вместе с членствами и возвращает
// внешние ID пользователей, которые в ней состояли.
func (s *Storage) DeleteOrganization(ctx context.Context, orgID string) ([]string, error) {
	const op = "storage.DeleteOrganization"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx,
		`DELETE FROM memberships WHERE organization_id = $1 RETURNING user_external_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var members []string
	for rows.Next() {
		var externalID string
		if err := rows.Scan(&externalID); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		members = append(members, externalID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_ = rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return members, nil
}

// ListOrganizationMembers возвращает внешние ID участников организации.
func (s *Storage) ListOrganizationMembers(ctx context.Context, orgID string) ([]string, error) {
	const op = "storage.ListOrganizationMembers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_external_id FROM memberships WHERE organization_id = $1 ORDER BY user_external_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var members []string
	for rows.Next() {
		var externalID string
		if err := rows.Scan(&externalID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		members = append(members, externalID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return members, nil
}

// AddMembership добавляет пользователя в организацию. Если организации ещё
// нет, она создаётся с пустыми метаданными.
func (s *Storage) AddMembership(ctx context.Context, orgID, userExternalID string) error {
	const op = "storage.AddMembership"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO organizations (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, orgID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memberships (organization_id, user_external_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, orgID, userExternalID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RemoveMembership удаляет пользователя из организации.
func (s *Storage) RemoveMembership(ctx context.Context, orgID, userExternalID string) error {
	const op = "storage.RemoveMembership"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM memberships WHERE organization_id = $1 AND user_external_id = $2`, orgID, userExternalID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListMemberships возвращает членства пользователя вместе с метаданными организаций.
func (s *Storage) ListMemberships(ctx context.Context, userExternalID string) ([]access.Membership, error) {
	const op = "storage.ListMemberships"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(
				json_agg(json_build_object('organization',
					json_build_object('id', o.id, 'public_metadata', o.public_metadata)) ORDER BY o.id),
				'[]'::json)
			  FROM memberships m
			  JOIN organizations o ON o.id = m.organization_id
			  WHERE m.user_external_id = $1`
	var raw []byte
	if err := s.DB.QueryRowContext(ctx, query, userExternalID).Scan(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return access.ParseMemberships(raw), nil
}
