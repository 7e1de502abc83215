package classification

import (
	"sync"
	"testing"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetector(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		patterns []Pattern
		wantErr  bool
	}{
		{
			name: "valid patterns",
			patterns: []Pattern{
				{Name: "Debit", Type: PatternTypeExpense, Regex: `debited`, Priority: 10},
				{Name: "Credit", Type: PatternTypeIncome, Regex: `credited`, Priority: 20},
			},
		},
		{
			name: "invalid regex",
			patterns: []Pattern{
				{Name: "Bad Pattern", Type: PatternTypeIncome, Regex: `[invalid`},
			},
			wantErr: true,
			errMsg:  "failed to compile pattern Bad Pattern",
		},
		{
			name:     "empty patterns",
			patterns: []Pattern{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(tt.patterns)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.patterns), d.PatternCount())
		})
	}
}

func TestDetector_PriorityOrder(t *testing.T) {
	d, err := NewDetector([]Pattern{
		{Name: "Low", Type: PatternTypeExpense, Regex: `shared`, Priority: 10},
		{Name: "High", Type: PatternTypeIncome, Regex: `shared`, Priority: 100},
	})
	require.NoError(t, err)

	match, ok := d.Detect("a SHARED keyword")
	require.True(t, ok)
	assert.Equal(t, "High", match.PatternName)
	assert.Equal(t, model.DirectionIncome, match.Direction)
}

func TestDetector_Detect(t *testing.T) {
	d := NewDefaultDetector()

	tests := []struct {
		name string
		text string
		want model.Direction
	}{
		{
			name: "card debit",
			text: "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA on 15-01-2024 14:30:25",
			want: model.DirectionExpense,
		},
		{
			name: "salary credit",
			text: "INR 50,000.00 credited to your A/c XX1234 on 01-02-2024. Info: SALARY",
			want: model.DirectionIncome,
		},
		{
			name: "upi debit mentioning payee credit",
			text: "Rs 250 debited from A/c XX12 and credited to swiggy@icici. UPI Ref 401234567890",
			want: model.DirectionExpense,
		},
		{
			name: "peer payment sent",
			text: "You have paid Rs.300 to Rahul Sharma via PhonePe",
			want: model.DirectionExpense,
		},
		{
			name: "peer payment received",
			text: "Received Rs.500 from Rahul via Google Pay",
			want: model.DirectionIncome,
		},
		{
			name: "refund",
			text: "Refund of Rs 999 for your order has been processed",
			want: model.DirectionIncome,
		},
		{
			name: "outgoing transfer",
			text: "Rs 5000 transferred from A/c XX1234 to A/c XX5678",
			want: model.DirectionTransferOut,
		},
		{
			name: "incoming transfer",
			text: "Rs 5000 transferred to your A/c XX1234 from A/c XX5678",
			want: model.DirectionTransferIn,
		},
		{
			name: "transfer debited is outbound",
			text: "A/c XX1234 debited Rs 1000 for IMPS transfer, credited to beneficiary",
			want: model.DirectionTransferOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := d.Detect(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, match.Direction)
			assert.Greater(t, match.Confidence, 0.0)
		})
	}
}

func TestDetector_NoMatch(t *testing.T) {
	d := NewDefaultDetector()

	match, ok := d.Detect("Your OTP for login is 123456")
	assert.False(t, ok)
	assert.Nil(t, match)
}

func TestDetector_CreditCardIsNotIncome(t *testing.T) {
	d := NewDefaultDetector()

	_, ok := d.Detect("Your HDFC Bank Credit Card bill of Rs.5,000.00 is due on 15-02-2024.")
	assert.False(t, ok)

	match, ok := d.Detect("INR 899.00 charged on your Credit Card XX9876 at NETFLIX")
	require.True(t, ok)
	assert.Equal(t, model.DirectionExpense, match.Direction)
}

func TestDetector_DetectKeyword(t *testing.T) {
	d := NewDefaultDetector()

	t.Run("keyword decides direction", func(t *testing.T) {
		match, ok := d.DetectKeyword("Credited", "something unrelated")
		require.True(t, ok)
		assert.Equal(t, model.DirectionIncome, match.Direction)
	})

	t.Run("transfer keyword uses body perspective", func(t *testing.T) {
		match, ok := d.DetectKeyword("transferred", "Rs 100 transferred into your account")
		require.True(t, ok)
		assert.Equal(t, model.DirectionTransferIn, match.Direction)
	})

	t.Run("transferred from a payer is inbound", func(t *testing.T) {
		for _, body := range []string{
			"Rs.5000.00 transferred from RAHUL KUMAR to A/c XX1234 on 15-01-2024",
			"Rs.5000.00 transferred from ACME CORP to your A/c XX1234",
		} {
			match, ok := d.DetectKeyword("transferred", body)
			require.True(t, ok, body)
			assert.Equal(t, model.DirectionTransferIn, match.Direction, body)
		}
	})

	t.Run("transferred from own account is outbound", func(t *testing.T) {
		for _, body := range []string{
			"Rs 5,000.00 transferred from A/c XX1234 to A/c XX5678 on 03-02-24",
			"Rs 5,000.00 transferred from XX1234 to RAHUL KUMAR",
			"Rs 5,000.00 transferred from your account to RAHUL KUMAR",
			"Rs 5,000.00 transferred from A/cX1234 to RAHUL KUMAR",
		} {
			match, ok := d.DetectKeyword("transferred", body)
			require.True(t, ok, body)
			assert.Equal(t, model.DirectionTransferOut, match.Direction, body)
		}
	})

	t.Run("unknown keyword falls back to body", func(t *testing.T) {
		match, ok := d.DetectKeyword("txn", "Rs 100 debited at STORE")
		require.True(t, ok)
		assert.Equal(t, model.DirectionExpense, match.Direction)
	})

	t.Run("empty keyword falls back to body", func(t *testing.T) {
		_, ok := d.DetectKeyword("", "nothing here")
		assert.False(t, ok)
	})
}

func TestDetector_UpdatePatterns(t *testing.T) {
	d := NewDefaultDetector()

	err := d.UpdatePatterns([]Pattern{{Name: "Only", Type: PatternTypeIncome, Regex: `bonus`}})
	require.NoError(t, err)
	assert.Equal(t, 1, d.PatternCount())

	_, ok := d.Detect("Rs 10 debited")
	assert.False(t, ok)

	err = d.UpdatePatterns([]Pattern{{Name: "Bad", Regex: `(`}})
	require.Error(t, err)
	assert.Equal(t, 1, d.PatternCount(), "failed update must keep previous patterns")
}

func TestDetector_ConcurrentAccess(t *testing.T) {
	d := NewDefaultDetector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Detect("Rs 10 debited")
		}()
		go func() {
			defer wg.Done()
			_ = d.UpdatePatterns(DefaultPatterns())
		}()
	}
	wg.Wait()

	assert.Equal(t, len(DefaultPatterns()), d.PatternCount())
}

func TestDetector_InstitutionWording(t *testing.T) {
	d := NewDefaultDetector()

	tests := []struct {
		name    string
		keyword string
		body    string
		want    model.Direction
	}{
		{name: "bare debit", keyword: "Debit", body: "Debit INR 500.00 A/c no. XX1234", want: model.DirectionExpense},
		{name: "sent you is incoming", keyword: "sent you", body: "Rahul sent you ₹500.00 on Google Pay", want: model.DirectionIncome},
		{name: "credit card spend", keyword: "", body: "INR 899.00 spent on Credit Card XX9876 at NETFLIX", want: model.DirectionExpense},
		{name: "bare credit with amount", keyword: "Credit", body: "Credit INR 1,000.00 A/c no. XX1234 UPI/P2A/RAHUL", want: model.DirectionIncome},
		{name: "credit by transfer", keyword: "credit by Transfer", body: "Your A/C XXXXX1234 has a credit by Transfer of Rs 10,000.00", want: model.DirectionTransferIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := d.DetectKeyword(tt.keyword, tt.body)
			require.True(t, ok)
			assert.Equal(t, tt.want, match.Direction)
		})
	}
}
