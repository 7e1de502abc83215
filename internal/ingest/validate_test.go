package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/service"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "debit message", body: "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA"},
		{name: "credit message", body: "INR 500 CREDITED to your account"},
		{name: "card spend", body: "INR 899.00 spent on Axis Bank Card"},
		{name: "chit chat", body: "Hey, how are you?", wantErr: common.ErrInvalidFormat},
		{name: "otp", body: "Your OTP is 123456. Do not share it.", wantErr: common.ErrInvalidFormat},
		{name: "empty", body: "", wantErr: common.ErrInvalidFormat},
		{name: "whitespace", body: "   \n\t", wantErr: common.ErrInvalidFormat},
		{name: "keyword inside word does not count", body: "undebitedness is not a word", wantErr: common.ErrInvalidFormat},
		{name: "card bill reminder", body: "Your HDFC Bank Credit Card bill of Rs.5,000.00 is due on 15-02-2024.", wantErr: common.ErrInvalidFormat},
		{name: "chat about sending money", body: "Hi, I sent Rs.200 for the movie tickets", wantErr: common.ErrInvalidFormat},
		{name: "debit card offer", body: "Use your Debit Card for 10% off at Croma this weekend", wantErr: common.ErrInvalidFormat},
		{name: "spent without amount", body: "We spent the evening at the mall", wantErr: common.ErrInvalidFormat},
		{name: "bare debit with amount", body: "Debit INR 500.00 A/c no. XX1234 UPI/P2M/BIGBASKET"},
		{name: "credit by transfer", body: "Your A/C XXXXX1234 has a credit by Transfer of Rs 10,000.00"},
		{name: "sent from account", body: "Sent Rs.450.00 from Kotak Bank AC X5678 to uber@paytm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(model.Message{Sender: "VK-TEST", Body: tt.body})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_BuiltInSamples(t *testing.T) {
	for _, sample := range pattern.Samples() {
		t.Run(sample.PatternID, func(t *testing.T) {
			assert.NoError(t, Validate(model.Message{Sender: sample.Sender, Body: sample.Body}))
		})
	}
}

func fastRetry() service.RetryOptions {
	return service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond}
}

func TestProcessWithRetry(t *testing.T) {
	ctx := context.Background()
	msg := model.Message{Sender: "VK-HDFCBK", Body: "Rs 10 debited"}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := ProcessWithRetry(ctx, msg, func(_ context.Context, got model.Message) error {
			calls++
			assert.Equal(t, msg, got)
			if calls < 3 {
				return errors.New("registry busy")
			}
			return nil
		}, fastRetry())
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("surfaces last error after ceiling", func(t *testing.T) {
		calls := 0
		lastErr := errors.New("attempt 3 failed")
		err := ProcessWithRetry(ctx, msg, func(context.Context, model.Message) error {
			calls++
			if calls == 3 {
				return lastErr
			}
			return errors.New("earlier failure")
		}, fastRetry())
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, common.ErrMaxRetries)
		assert.ErrorIs(t, err, lastErr)
	})

	t.Run("deterministic failures are not retried", func(t *testing.T) {
		for _, sentinel := range []error{
			common.ErrInvalidFormat,
			common.ErrNoPatternMatch,
			common.ErrAmountParsingFailed,
			common.ErrValidationFailed,
		} {
			calls := 0
			err := ProcessWithRetry(ctx, msg, func(context.Context, model.Message) error {
				calls++
				return sentinel
			}, fastRetry())
			assert.ErrorIs(t, err, sentinel)
			assert.Equal(t, 1, calls, sentinel.Error())
		}
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := ProcessWithRetry(cancelled, msg, func(context.Context, model.Message) error {
			return errors.New("transient")
		}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
