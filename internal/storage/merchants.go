package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

const merchantColumns = `normalized_name, display_name, category_id, confidence,
	transaction_count, updated_at`

func scanMerchant(row interface{ Scan(...any) error }) (model.MerchantInfo, error) {
	var m model.MerchantInfo
	err := row.Scan(&m.NormalizedName, &m.DisplayName, &m.CategoryID, &m.Confidence,
		&m.TransactionCount, &m.UpdatedAt)
	return m, err
}

// GetMerchantByNormalizedName returns the history for one merchant.
func (s *SQLiteStorage) GetMerchantByNormalizedName(ctx context.Context, normalizedName string) (*model.MerchantInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}

	m, err := scanMerchant(s.db.QueryRowContext(ctx, `
		SELECT `+merchantColumns+`
		FROM merchants
		WHERE normalized_name = ?`, normalizedName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("merchant %q: %w", normalizedName, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	return &m, nil
}

// UpsertMerchant records a merchant's category and confidence. An existing
// merchant keeps its transaction count.
func (s *SQLiteStorage) UpsertMerchant(ctx context.Context, merchant *model.MerchantInfo) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMerchant(merchant); err != nil {
		return err
	}

	if merchant.DisplayName == "" {
		merchant.DisplayName = merchant.NormalizedName
	}
	if merchant.UpdatedAt.IsZero() {
		merchant.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (`+merchantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(normalized_name) DO UPDATE SET
			display_name = excluded.display_name,
			category_id = excluded.category_id,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		merchant.NormalizedName, merchant.DisplayName, merchant.CategoryID,
		merchant.Confidence, merchant.TransactionCount, merchant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert merchant: %w", err)
	}
	return nil
}

// IncrementMerchantTransactionCount counts one more transaction for a known
// merchant. Merchants without history are left alone.
func (s *SQLiteStorage) IncrementMerchantTransactionCount(ctx context.Context, normalizedName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE merchants
		SET transaction_count = transaction_count + 1, updated_at = ?
		WHERE normalized_name = ?`, time.Now(), normalizedName)
	if err != nil {
		return fmt.Errorf("failed to increment merchant count: %w", err)
	}
	return nil
}

// FindSimilarMerchants returns up to limit merchants sharing at least one
// token with normalizedName. Candidates sharing the most tokens come first,
// shorter names before longer ones, so the limit never drops a close but
// rarely seen merchant in favour of a busy loose match.
func (s *SQLiteStorage) FindSimilarMerchants(ctx context.Context, normalizedName string, limit int) ([]model.MerchantInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tokens := model.MerchantTokens(normalizedName)
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	// Normalized tokens are alphanumeric, so they carry no LIKE wildcards.
	matches := make([]string, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	for i, token := range tokens {
		matches[i] = "((' ' || normalized_name || ' ') LIKE ?)"
		args = append(args, "% "+token+" %")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+merchantColumns+`
		FROM (
			SELECT *, `+strings.Join(matches, " + ")+` AS shared
			FROM merchants
		)
		WHERE shared > 0
		ORDER BY shared DESC, length(normalized_name), transaction_count DESC, normalized_name
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar merchants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var merchants []model.MerchantInfo
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		merchants = append(merchants, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchants: %w", err)
	}
	return merchants, nil
}

// GetMerchants returns all merchant history, busiest first.
func (s *SQLiteStorage) GetMerchants(ctx context.Context) ([]model.MerchantInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+merchantColumns+`
		FROM merchants
		ORDER BY transaction_count DESC, normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var merchants []model.MerchantInfo
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		merchants = append(merchants, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchants: %w", err)
	}
	return merchants, nil
}
