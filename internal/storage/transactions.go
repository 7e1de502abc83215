package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

const transactionColumns = `id, hash, date, amount, direction, merchant_name,
	account_identifier, account_ref, sender, raw_message, source,
	category_id, category_confidence, category_reason`

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Since      time.Time
	Until      time.Time
	AccountRef string
	CategoryID int
	Limit      int
}

// SaveTransaction stores a categorized transaction. A transaction whose hash
// is already stored yields common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transactionArgs(txn)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

// SaveTransactions stores transactions in one database transaction, skipping
// ones already present, and reports how many were new.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range transactions {
			txn := &transactions[i]
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}
			result, err := stmt.ExecContext(ctx, transactionArgs(txn)...)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("saved transactions", "total", len(transactions), "inserted", inserted)
	return inserted, nil
}

func transactionArgs(txn *model.Transaction) []any {
	var categoryID sql.NullInt64
	if txn.CategoryID > 0 {
		categoryID = sql.NullInt64{Int64: int64(txn.CategoryID), Valid: true}
	}
	return []any{
		txn.ID,
		txn.Hash,
		txn.Date,
		txn.Amount.StringFixed(2),
		string(txn.Direction),
		txn.MerchantName,
		txn.AccountIdentifier,
		txn.AccountRef,
		txn.Sender,
		txn.RawMessage,
		string(txn.Source),
		categoryID,
		txn.CategoryConfidence,
		string(txn.CategoryReason),
	}
}

func scanTransaction(row interface{ Scan(...any) error }) (model.Transaction, error) {
	var (
		txn        model.Transaction
		amount     string
		direction  string
		source     string
		reason     string
		categoryID sql.NullInt64
	)
	err := row.Scan(
		&txn.ID, &txn.Hash, &txn.Date, &amount, &direction, &txn.MerchantName,
		&txn.AccountIdentifier, &txn.AccountRef, &txn.Sender, &txn.RawMessage, &source,
		&categoryID, &txn.CategoryConfidence, &reason,
	)
	if err != nil {
		return model.Transaction{}, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	txn.Amount = parsed
	txn.Direction = model.Direction(direction)
	txn.Source = model.TransactionSource(source)
	txn.CategoryReason = model.CategorizationReason(reason)
	if categoryID.Valid {
		txn.CategoryID = int(categoryID.Int64)
	}
	return txn, nil
}

// UpdateTransactionCategory records a new categorization for a stored transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id string, result model.CategorizationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateConfidence(result.Confidence, ErrInvalidTransaction); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = ?, category_confidence = ?, category_reason = ?
		WHERE id = ?`,
		result.Category.ID, result.Confidence, string(result.Reason), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("transaction %s", id))
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// ListTransactions returns transactions matching filter, newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)
	if !filter.Since.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.Since)
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "date < ?")
		args = append(args, filter.Until)
	}
	if filter.AccountRef != "" {
		conditions = append(conditions, "account_ref = ?")
		args = append(args, filter.AccountRef)
	}
	if filter.CategoryID > 0 {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filter.CategoryID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetTransactionCount returns the number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetCategorySummary totals expense and transfer-out amounts per category name
// for transactions dated in [start, end).
func (s *SQLiteStorage) GetCategorySummary(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(c.name, ?), t.amount
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.date >= ? AND t.date < ? AND t.direction IN (?, ?)`,
		model.UncategorizedCategoryName, start, end,
		string(model.DirectionExpense), string(model.DirectionTransferOut))
	if err != nil {
		return nil, fmt.Errorf("failed to query category summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := make(map[string]decimal.Decimal)
	for rows.Next() {
		var name, amount string
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan category summary: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		summary[name] = summary[name].Add(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category summary: %w", err)
	}
	return summary, nil
}
