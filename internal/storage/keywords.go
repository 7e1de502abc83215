package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-sms/internal/model"
)

func queryKeywords(ctx context.Context, q queryable, query string, args ...any) ([]model.KeywordMapping, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.KeywordMapping
	for rows.Next() {
		var m model.KeywordMapping
		if err := rows.Scan(&m.Keyword, &m.CategoryID, &m.IsUserDefined); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}
	return mappings, nil
}

// GetKeywordCategory returns the mapping for keyword, preferring a user
// mapping over the default table. It returns nil when neither has one.
func (s *SQLiteStorage) GetKeywordCategory(ctx context.Context, keyword string) (*model.KeywordMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var m model.KeywordMapping
	err := s.db.QueryRowContext(ctx, `
		SELECT k.keyword, k.category_id, k.is_user_defined
		FROM keyword_mappings k
		JOIN categories c ON c.id = k.category_id
		WHERE k.keyword = ? AND c.is_active = 1
		ORDER BY k.is_user_defined DESC
		LIMIT 1`, keyword).Scan(&m.Keyword, &m.CategoryID, &m.IsUserDefined)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}
	return &m, nil
}

// GetDefaultKeywords returns the built-in keyword table.
func (s *SQLiteStorage) GetDefaultKeywords(ctx context.Context) ([]model.KeywordMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return queryKeywords(ctx, s.db, `
		SELECT keyword, category_id, is_user_defined
		FROM keyword_mappings
		WHERE is_user_defined = 0
		ORDER BY keyword`)
}

// AddKeyword maps keyword to categoryID as a user mapping, replacing any
// previous user mapping for it.
func (s *SQLiteStorage) AddKeyword(ctx context.Context, keyword string, categoryID int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(keyword, "keyword"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO keyword_mappings (keyword, category_id, is_user_defined)
		VALUES (?, ?, 1)
		ON CONFLICT(keyword, is_user_defined) DO UPDATE SET
			category_id = excluded.category_id`, keyword, categoryID)
	if err != nil {
		return fmt.Errorf("failed to add keyword: %w", err)
	}
	return nil
}

// RemoveKeyword deletes the user mapping for keyword. Default mappings stay.
func (s *SQLiteStorage) RemoveKeyword(ctx context.Context, keyword string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM keyword_mappings
		WHERE keyword = ? AND is_user_defined = 1`, keyword)
	if err != nil {
		return fmt.Errorf("failed to remove keyword: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("keyword %q", keyword))
}

// GetKeywordsForCategory returns every mapping pointing at categoryID.
func (s *SQLiteStorage) GetKeywordsForCategory(ctx context.Context, categoryID int) ([]model.KeywordMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return queryKeywords(ctx, s.db, `
		SELECT keyword, category_id, is_user_defined
		FROM keyword_mappings
		WHERE category_id = ?
		ORDER BY keyword, is_user_defined DESC`, categoryID)
}

// GetAllKeywords returns every keyword mapping.
func (s *SQLiteStorage) GetAllKeywords(ctx context.Context) ([]model.KeywordMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return queryKeywords(ctx, s.db, `
		SELECT keyword, category_id, is_user_defined
		FROM keyword_mappings
		ORDER BY keyword, is_user_defined DESC`)
}
