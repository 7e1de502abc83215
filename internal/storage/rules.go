package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

const ruleColumns = `id, merchant_pattern, category_id, confidence, is_user_defined,
	use_count, last_used, created_at`

func scanRule(row interface{ Scan(...any) error }) (model.CategoryRule, error) {
	var (
		rule     model.CategoryRule
		lastUsed sql.NullTime
	)
	err := row.Scan(&rule.ID, &rule.MerchantPattern, &rule.CategoryID, &rule.Confidence,
		&rule.IsUserDefined, &rule.UseCount, &lastUsed, &rule.CreatedAt)
	if err != nil {
		return model.CategoryRule{}, err
	}
	if lastUsed.Valid {
		rule.LastUsed = lastUsed.Time
	}
	return rule, nil
}

func queryRules(ctx context.Context, q queryable, query string, args ...any) ([]model.CategoryRule, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// GetRulesForMerchant returns the rules bound to a normalized merchant name.
func (s *SQLiteStorage) GetRulesForMerchant(ctx context.Context, normalizedMerchant string) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedMerchant, "normalizedMerchant"); err != nil {
		return nil, err
	}

	return queryRules(ctx, s.db, `
		SELECT `+ruleColumns+`
		FROM category_rules
		WHERE merchant_pattern = ?
		ORDER BY is_user_defined DESC, confidence DESC, id`, normalizedMerchant)
}

// GetAllRules returns every rule, most used first.
func (s *SQLiteStorage) GetAllRules(ctx context.Context) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return queryRules(ctx, s.db, `
		SELECT `+ruleColumns+`
		FROM category_rules
		ORDER BY use_count DESC, merchant_pattern`)
}

// InsertRule creates a rule. A rule for the same merchant already existing
// yields common.ErrDuplicateEntry.
func (s *SQLiteStorage) InsertRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.LastUsed.IsZero() {
		rule.LastUsed = now
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO category_rules (
			merchant_pattern, category_id, confidence, is_user_defined,
			use_count, last_used, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.MerchantPattern, rule.CategoryID, rule.Confidence, rule.IsUserDefined,
		rule.UseCount, rule.LastUsed, rule.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule for %q: %w", rule.MerchantPattern, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = int(id)
	return nil
}

// UpdateRule overwrites a rule's category, confidence and last use. The usage
// count never decreases.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.LastUsed.IsZero() {
		rule.LastUsed = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE category_rules
		SET category_id = ?, confidence = ?, is_user_defined = ?,
			use_count = MAX(use_count, ?), last_used = ?
		WHERE id = ?`,
		rule.CategoryID, rule.Confidence, rule.IsUserDefined,
		rule.UseCount, rule.LastUsed, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", rule.ID))
}

// IncrementRuleUsage bumps a rule's usage count and last-used time.
func (s *SQLiteStorage) IncrementRuleUsage(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE category_rules
		SET use_count = use_count + 1, last_used = ?
		WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

// UpsertUserRule creates the user rule for a merchant or, when one exists,
// moves it to the new category and counts the correction as a use. The
// stored rule is copied back into rule.
func (s *SQLiteStorage) UpsertUserRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.LastUsed.IsZero() {
		rule.LastUsed = now
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO category_rules (
				merchant_pattern, category_id, confidence, is_user_defined,
				use_count, last_used, created_at
			) VALUES (?, ?, ?, 1, ?, ?, ?)
			ON CONFLICT(merchant_pattern) DO UPDATE SET
				category_id = excluded.category_id,
				confidence = excluded.confidence,
				is_user_defined = 1,
				use_count = category_rules.use_count + 1,
				last_used = excluded.last_used`,
			rule.MerchantPattern, rule.CategoryID, rule.Confidence,
			rule.UseCount, rule.LastUsed, rule.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert rule: %w", err)
		}

		stored, err := scanRule(tx.QueryRowContext(ctx, `
			SELECT `+ruleColumns+`
			FROM category_rules
			WHERE merchant_pattern = ?`, rule.MerchantPattern))
		if err != nil {
			return fmt.Errorf("failed to reload rule: %w", err)
		}
		*rule = stored
		return nil
	})
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

// GetRuleByID returns a single rule.
func (s *SQLiteStorage) GetRuleByID(ctx context.Context, id int) (*model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rule, err := scanRule(s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM category_rules
		WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &rule, nil
}
