package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
)

const patternColumns = `id, institution, sender_pattern, amount_pattern, merchant_pattern,
	date_pattern, direction_pattern, account_pattern, is_active, created_at, updated_at`

// GetMessagePatterns returns every stored message pattern in creation order.
func (s *SQLiteStorage) GetMessagePatterns(ctx context.Context) ([]model.MessagePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patternColumns+`
		FROM message_patterns
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query message patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.MessagePattern
	for rows.Next() {
		var p model.MessagePattern
		err := rows.Scan(&p.ID, &p.Institution, &p.SenderPattern, &p.AmountPattern,
			&p.MerchantPattern, &p.DatePattern, &p.DirectionPattern, &p.AccountPattern,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message patterns: %w", err)
	}
	return patterns, nil
}

// SaveMessagePattern inserts pattern or replaces the stored pattern with the
// same ID, keeping its creation time.
func (s *SQLiteStorage) SaveMessagePattern(ctx context.Context, pattern *model.MessagePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	now := time.Now()
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}
	if pattern.UpdatedAt.IsZero() {
		pattern.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			institution = excluded.institution,
			sender_pattern = excluded.sender_pattern,
			amount_pattern = excluded.amount_pattern,
			merchant_pattern = excluded.merchant_pattern,
			date_pattern = excluded.date_pattern,
			direction_pattern = excluded.direction_pattern,
			account_pattern = excluded.account_pattern,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		pattern.ID, pattern.Institution, pattern.SenderPattern, pattern.AmountPattern,
		pattern.MerchantPattern, pattern.DatePattern, pattern.DirectionPattern,
		pattern.AccountPattern, pattern.IsActive, pattern.CreatedAt, pattern.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message pattern: %w", err)
	}
	return nil
}

// SetMessagePatternActive enables or disables a stored pattern.
func (s *SQLiteStorage) SetMessagePatternActive(ctx context.Context, id string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE message_patterns SET is_active = ?, updated_at = ?
		WHERE id = ?`, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update message pattern: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("message pattern %s", id))
}

// DeleteMessagePattern removes a stored pattern.
func (s *SQLiteStorage) DeleteMessagePattern(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM message_patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message pattern: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("message pattern %s", id))
}
