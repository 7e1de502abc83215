package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/accounts"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/ingest"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
)

var receivedAt = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return receivedAt }

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	registry, err := pattern.NewDefaultRegistry()
	require.NoError(t, err)
	return NewExtractor(registry, append([]Option{WithClock(fixedClock)}, opts...)...)
}

func TestExtractor_HDFCDebit(t *testing.T) {
	e := newTestExtractor(t)

	result := e.Extract(context.Background(), model.Message{
		Sender:     "VK-HDFCBK",
		Body:       "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA on 15-01-2024 14:30:25",
		ReceivedAt: receivedAt,
	})

	require.True(t, result.Success, "error: %v", result.Details.Err)
	txn := result.Transaction
	require.NotNil(t, txn)
	assert.True(t, decimal.RequireFromString("2500.00").Equal(txn.Amount))
	assert.Equal(t, model.DirectionExpense, txn.Direction)
	assert.Equal(t, "AMAZON INDIA", txn.MerchantName)
	assert.Equal(t, "XXXX1234", txn.AccountIdentifier)
	assert.True(t, time.Date(2024, 1, 15, 14, 30, 25, 0, time.UTC).Equal(txn.Date), "date %s", txn.Date)
	assert.Equal(t, model.SourceAutomatic, txn.Source)
	assert.NotEmpty(t, txn.ID)
	assert.NotEmpty(t, txn.Hash)

	assert.Greater(t, result.Confidence, 0.8)
	assert.True(t, result.Details.UsedPattern)
	assert.Equal(t, "hdfc-card-debit", result.Details.PatternID)
	assert.Equal(t, pattern.InstitutionHDFC, result.Details.Institution)
	assert.Len(t, result.Details.FieldsFound, 5)
	assert.Equal(t, model.StageScored, result.Details.Stage)
	assert.Equal(t, model.FailureNone, result.Details.FailureReason)
}

func TestExtractor_NonNumericAmountFails(t *testing.T) {
	registry := pattern.NewRegistry()
	_, err := registry.Register(context.Background(), model.MessagePattern{
		Institution:      "Test Bank",
		SenderPattern:    `TSTBNK`,
		AmountPattern:    `Amount:\s*(\S+)`,
		DirectionPattern: `(debited|credited)`,
		MerchantPattern:  `at\s+(.+?)\s+on`,
		DatePattern:      `on\s+(\d{2}-\d{2}-\d{4})`,
		AccountPattern:   `A/c\s+(X+\d+)`,
		IsActive:         true,
	})
	require.NoError(t, err)
	e := NewExtractor(registry, WithClock(fixedClock))

	result := e.Extract(context.Background(), model.Message{
		Sender: "AD-TSTBNK",
		Body:   "Amount: ABC debited from A/c XX1234 at STORE on 15-01-2024",
	})

	assert.False(t, result.Success)
	assert.Nil(t, result.Transaction)
	assert.Equal(t, model.FailureAmountValidation, result.Details.FailureReason)
	assert.ErrorIs(t, result.Details.Err, common.ErrAmountParsingFailed)
	assert.ErrorIs(t, Err(result), common.ErrAmountParsingFailed)
	assert.Equal(t, model.StageFieldExtraction, result.Details.Stage)
}

func TestExtractor_UnknownSender(t *testing.T) {
	body := "Rs 450.00 debited from A/c XX9999 at CAFE COFFEE DAY on 10-02-2024"

	t.Run("fails without generic fallback", func(t *testing.T) {
		e := newTestExtractor(t)
		result := e.Extract(context.Background(), model.Message{Sender: "XY-NOBANK", Body: body})

		assert.False(t, result.Success)
		assert.Equal(t, model.FailureNoPatternMatch, result.Details.FailureReason)
		assert.ErrorIs(t, result.Details.Err, common.ErrNoPatternMatch)
		assert.Equal(t, model.StagePatternLookup, result.Details.Stage)
	})

	t.Run("generic fallback extracts", func(t *testing.T) {
		e := newTestExtractor(t, WithGenericFallback(true))
		result := e.Extract(context.Background(), model.Message{Sender: "XY-NOBANK", Body: body})

		require.True(t, result.Success, "error: %v", result.Details.Err)
		assert.False(t, result.Details.UsedPattern)
		assert.Equal(t, "CAFE COFFEE DAY", result.Transaction.MerchantName)
		assert.Equal(t, "XX9999", result.Transaction.AccountIdentifier)
		assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	})
}

func TestExtractor_NoTransactionSemantics(t *testing.T) {
	registry := pattern.NewRegistry()
	_, err := registry.Register(context.Background(), model.MessagePattern{
		Institution:      "Test Bank",
		SenderPattern:    `TSTBNK`,
		AmountPattern:    `Rs\.?\s*([\d,.]+\d)`,
		DirectionPattern: `(debited|credited)`,
		IsActive:         true,
	})
	require.NoError(t, err)
	e := NewExtractor(registry, WithClock(fixedClock))

	result := e.Extract(context.Background(), model.Message{
		Sender: "TSTBNK",
		Body:   "Transaction of Rs 500 at STORE is pending",
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.FailureNoTransactionSemantics, result.Details.FailureReason)
	assert.ErrorIs(t, result.Details.Err, common.ErrNoTransactionSemantics)
}

func TestExtractor_MissingFieldsDegradeConfidence(t *testing.T) {
	registry := pattern.NewRegistry()
	_, err := registry.Register(context.Background(), model.MessagePattern{
		Institution:      "Sparse Bank",
		SenderPattern:    `SPARSE`,
		AmountPattern:    `Rs\.?\s*([\d,]+(?:\.\d{1,2})?)`,
		DirectionPattern: `(debited)`,
		IsActive:         true,
	})
	require.NoError(t, err)
	e := NewExtractor(registry, WithClock(fixedClock))

	result := e.Extract(context.Background(), model.Message{
		Sender:     "SPARSE",
		Body:       "Rs 75 debited",
		ReceivedAt: receivedAt,
	})

	require.True(t, result.Success)
	assert.Equal(t, ingest.UnknownMerchant, result.Transaction.MerchantName)
	assert.Equal(t, receivedAt, result.Transaction.Date, "missing date defaults to receipt time")
	assert.ElementsMatch(t, []model.Field{model.FieldAmount, model.FieldDirection}, result.Details.FieldsFound)
	assert.InDelta(t, 0.8*2/5+0.2, result.Confidence, 1e-9)
}

func TestExtractor_ResolvesAccount(t *testing.T) {
	ctx := context.Background()
	resolver := accounts.NewResolver(accounts.NewMemoryStore())
	_, err := resolver.CreateMapping(ctx, "acct-hdfc-savings", "hdfc bank", "XXXX1234")
	require.NoError(t, err)

	e := newTestExtractor(t, WithResolver(resolver))
	result := e.Extract(ctx, model.Message{
		Sender: "VK-HDFCBK",
		Body:   "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA on 15-01-2024 14:30:25",
	})

	require.True(t, result.Success)
	assert.Equal(t, "acct-hdfc-savings", result.Transaction.AccountRef)

	unmapped := e.Extract(ctx, model.Message{
		Sender: "VK-HDFCBK",
		Body:   "Rs.99.00 debited from A/c no XXXX9999 at STORE on 15-01-2024",
	})
	require.True(t, unmapped.Success)
	assert.Empty(t, unmapped.Transaction.AccountRef)
}

func TestExtractor_BuiltInPatternsScoreAboveThreshold(t *testing.T) {
	e := newTestExtractor(t)

	directions := map[string]model.Direction{
		"hdfc-card-debit":    model.DirectionExpense,
		"hdfc-credit":        model.DirectionIncome,
		"hdfc-transfer":      model.DirectionTransferOut,
		"sbi-credit":         model.DirectionTransferIn,
		"axis-upi":           model.DirectionExpense,
		"kotak-upi-received": model.DirectionIncome,
		"gpay-received":      model.DirectionIncome,
		"phonepe-paid":       model.DirectionExpense,
	}

	for _, sample := range pattern.Samples() {
		t.Run(sample.PatternID, func(t *testing.T) {
			result := e.Extract(context.Background(), model.Message{
				Sender:     sample.Sender,
				Body:       sample.Body,
				ReceivedAt: receivedAt,
			})
			require.True(t, result.Success, "error: %v", result.Details.Err)
			assert.Equal(t, sample.PatternID, result.Details.PatternID)
			assert.Greater(t, result.Confidence, 0.8)
			assert.NotEqual(t, ingest.UnknownMerchant, result.Transaction.MerchantName)
			if want, ok := directions[sample.PatternID]; ok {
				assert.Equal(t, want, result.Transaction.Direction)
			}
		})
	}
}

func TestExtractor_SlowExtractionIsPenalized(t *testing.T) {
	registry, err := pattern.NewDefaultRegistry()
	require.NoError(t, err)

	tick := receivedAt
	slowClock := func() time.Time {
		tick = tick.Add(60 * time.Millisecond)
		return tick
	}
	e := NewExtractor(registry, WithClock(slowClock))

	result := e.Extract(context.Background(), model.Message{
		Sender:     "VK-HDFCBK",
		Body:       "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA on 15-01-2024 14:30:25",
		ReceivedAt: receivedAt,
	})
	require.True(t, result.Success)
	assert.Greater(t, result.Details.Duration, DefaultLatencyBudget)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
}
