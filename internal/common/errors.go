// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Message ingestion errors.
	ErrInvalidFormat          = errors.New("invalid message format")
	ErrNoPatternMatch         = errors.New("no pattern matches sender")
	ErrAmountParsingFailed    = errors.New("amount parsing failed")
	ErrValidationFailed       = errors.New("validation failed")
	ErrNoTransactionSemantics = errors.New("message lacks transaction semantics")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
// Deterministic extraction failures never do: retrying cannot change their outcome.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	if errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrNoPatternMatch) ||
		errors.Is(err, ErrAmountParsingFailed) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrNoTransactionSemantics) ||
		errors.Is(err, context.Canceled) {
		return false
	}

	return true
}
