package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{MaxAttempts: attempts, InitialDelay: time.Millisecond}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("registry busy")
		}
		return nil
	}, fastRetry(3))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_SurfacesLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("attempt 3")
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls == 3 {
			return lastErr
		}
		return fmt.Errorf("attempt %d", calls)
	}, fastRetry(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, lastErr)
}

func TestWithRetry_StopsOnPermanentErrors(t *testing.T) {
	tests := []struct {
		err  error
		name string
	}{
		{name: "invalid format", err: fmt.Errorf("empty body: %w", ErrInvalidFormat)},
		{name: "no pattern", err: ErrNoPatternMatch},
		{name: "amount", err: ErrAmountParsingFailed},
		{name: "explicit permanent", err: Permanent(errors.New("nope"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				return tt.err
			}, fastRetry(5))

			assert.Equal(t, 1, calls)
			assert.NotErrorIs(t, err, ErrMaxRetries)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.True(t, IsRetryable(&RetryableError{Err: ErrValidationFailed, Retryable: true}))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrValidationFailed)))
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not read messages", ErrInvalidFormat)
	assert.Equal(t, "could not read messages: invalid message format", err.Error())
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}
