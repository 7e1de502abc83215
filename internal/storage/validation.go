// Package storage provides the SQLite persistence layer for transactions,
// categorization state, account mappings and message patterns.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRule        = errors.New("invalid category rule")
	ErrInvalidMerchant    = errors.New("invalid merchant")
	ErrInvalidMapping     = errors.New("invalid account mapping")
	ErrInvalidPattern     = errors.New("invalid message pattern")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateConfidence(confidence float64, target error) error {
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", target)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.MerchantName) == "" {
		return fmt.Errorf("%w: missing merchant name", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if !txn.Direction.IsValid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidTransaction, txn.Direction)
	}
	return validateConfidence(txn.CategoryConfidence, ErrInvalidTransaction)
}

// validateRule validates a category rule.
func validateRule(rule *model.CategoryRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.MerchantPattern) == "" {
		return fmt.Errorf("%w: missing merchant pattern", ErrInvalidRule)
	}
	if rule.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	if rule.UseCount < 0 {
		return fmt.Errorf("%w: use count cannot be negative", ErrInvalidRule)
	}
	return validateConfidence(rule.Confidence, ErrInvalidRule)
}

// validateMerchant validates merchant history.
func validateMerchant(merchant *model.MerchantInfo) error {
	if merchant == nil {
		return fmt.Errorf("%w: merchant", ErrNilParameter)
	}
	if strings.TrimSpace(merchant.NormalizedName) == "" {
		return fmt.Errorf("%w: missing normalized name", ErrInvalidMerchant)
	}
	if merchant.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidMerchant)
	}
	return validateConfidence(merchant.Confidence, ErrInvalidMerchant)
}

// validateMapping validates an account mapping.
func validateMapping(mapping *model.AccountMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if strings.TrimSpace(mapping.AccountRef) == "" {
		return fmt.Errorf("%w: missing account reference", ErrInvalidMapping)
	}
	if strings.TrimSpace(mapping.Institution) == "" {
		return fmt.Errorf("%w: missing institution", ErrInvalidMapping)
	}
	if strings.TrimSpace(mapping.Identifier) == "" {
		return fmt.Errorf("%w: missing identifier", ErrInvalidMapping)
	}
	return nil
}

// validatePattern validates a message pattern.
func validatePattern(pattern *model.MessagePattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if pattern.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPattern)
	}
	if strings.TrimSpace(pattern.Institution) == "" {
		return fmt.Errorf("%w: missing institution", ErrInvalidPattern)
	}
	if strings.TrimSpace(pattern.SenderPattern) == "" {
		return fmt.Errorf("%w: missing sender pattern", ErrInvalidPattern)
	}
	return nil
}
