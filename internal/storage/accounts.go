package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

const mappingColumns = `id, account_ref, institution, identifier, is_active, created_at`

func scanMapping(row interface{ Scan(...any) error }) (model.AccountMapping, error) {
	var m model.AccountMapping
	err := row.Scan(&m.ID, &m.AccountRef, &m.Institution, &m.Identifier, &m.IsActive, &m.CreatedAt)
	return m, err
}

func queryMappings(ctx context.Context, q queryable, query string, args ...any) ([]model.AccountMapping, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.AccountMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account mappings: %w", err)
	}
	return mappings, nil
}

// SaveMapping stores mapping. Saving an (account, institution, identifier)
// triple that already exists reactivates it and copies it into mapping. An
// identifier actively mapped to another account yields common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, mapping *model.AccountMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	key := common.Fold(mapping.Institution)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var other string
		err := tx.QueryRowContext(ctx, `
			SELECT account_ref FROM account_mappings
			WHERE institution_key = ? AND identifier = ? AND is_active = 1 AND account_ref != ?`,
			key, mapping.Identifier, mapping.AccountRef).Scan(&other)
		if err == nil {
			return fmt.Errorf("identifier %s at %s already mapped to %s: %w",
				mapping.Identifier, mapping.Institution, other, common.ErrDuplicateEntry)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check mapping conflicts: %w", err)
		}

		existing, err := scanMapping(tx.QueryRowContext(ctx, `
			SELECT `+mappingColumns+` FROM account_mappings
			WHERE account_ref = ? AND institution_key = ? AND identifier = ?`,
			mapping.AccountRef, key, mapping.Identifier))
		if err == nil {
			if !existing.IsActive {
				if _, err := tx.ExecContext(ctx, `UPDATE account_mappings SET is_active = 1 WHERE id = ?`, existing.ID); err != nil {
					return fmt.Errorf("failed to reactivate mapping: %w", err)
				}
				existing.IsActive = true
			}
			*mapping = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up mapping: %w", err)
		}

		if mapping.ID == "" {
			mapping.ID = uuid.NewString()
		}
		if mapping.CreatedAt.IsZero() {
			mapping.CreatedAt = time.Now()
		}
		mapping.IsActive = true

		_, err = tx.ExecContext(ctx, `
			INSERT INTO account_mappings (
				id, account_ref, institution, institution_key, identifier, is_active, created_at
			) VALUES (?, ?, ?, ?, ?, 1, ?)`,
			mapping.ID, mapping.AccountRef, strings.TrimSpace(mapping.Institution), key,
			mapping.Identifier, mapping.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("mapping %s: %w", mapping.ID, common.ErrDuplicateEntry)
		}
		if err != nil {
			return fmt.Errorf("failed to insert mapping: %w", err)
		}
		return nil
	})
}

// FindActiveMapping resolves an identifier seen at an institution. The
// institution is compared under Unicode case folding.
func (s *SQLiteStorage) FindActiveMapping(ctx context.Context, institution, identifier string) (*model.AccountMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m, err := scanMapping(s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+` FROM account_mappings
		WHERE institution_key = ? AND identifier = ? AND is_active = 1`,
		common.Fold(institution), identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mapping %s/%s: %w", institution, identifier, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mapping: %w", err)
	}
	return &m, nil
}

// GetMappingsForAccount lists every mapping of an account, active or not.
func (s *SQLiteStorage) GetMappingsForAccount(ctx context.Context, accountRef string) ([]model.AccountMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return queryMappings(ctx, s.db, `
		SELECT `+mappingColumns+` FROM account_mappings
		WHERE account_ref = ?
		ORDER BY created_at, id`, accountRef)
}

// GetAllMappings lists every mapping.
func (s *SQLiteStorage) GetAllMappings(ctx context.Context) ([]model.AccountMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return queryMappings(ctx, s.db, `
		SELECT `+mappingColumns+` FROM account_mappings
		ORDER BY created_at, id`)
}

// SetMappingActive enables or disables a mapping.
func (s *SQLiteStorage) SetMappingActive(ctx context.Context, id string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE account_mappings SET is_active = ? WHERE id = ?`, active, id)
	if isUniqueViolation(err) {
		return fmt.Errorf("mapping %s conflicts with an active mapping: %w", id, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("mapping %s", id))
}

// DeleteMapping removes a mapping.
func (s *SQLiteStorage) DeleteMapping(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM account_mappings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("mapping %s", id))
}
