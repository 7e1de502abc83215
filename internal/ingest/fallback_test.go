package ingest

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/common"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "plain", raw: "2500.00", want: "2500"},
		{name: "thousands separators", raw: "1,25,000.50", want: "125000.5"},
		{name: "currency prefix", raw: "Rs. 1,299", want: "1299"},
		{name: "rupee sign", raw: "₹250.00", want: "250"},
		{name: "trailing dot", raw: "120.", want: "120"},
		{name: "letters", raw: "ABC", wantErr: common.ErrAmountParsingFailed},
		{name: "empty", raw: "", wantErr: common.ErrAmountParsingFailed},
		{name: "zero", raw: "0.00", wantErr: common.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmountWithFallback(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{name: "currency prefix", text: "Rs.2500.00 debited from A/c no XXXX1234", want: "2500"},
		{name: "inr with separators", text: "INR 1,250.75 spent on card", want: "1250.75"},
		{name: "currency suffix", text: "A payment of 300 rupees was made", want: "300"},
		{name: "keyword amount", text: "A/C X1234 debited by 350.0 on date 15Jan24", want: "350"},
		{name: "amount label", text: "Txn amt: 4,999 at STORE", want: "4999"},
		{name: "largest decimal heuristic", text: "Txn 12.50 fee 3.25 on card XX1234.99", want: "12.5"},
		{name: "nothing numeric", text: "debited from your account", wantErr: true},
		{name: "integers alone are not amounts", text: "call 1800111109 now", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountWithFallback(tt.text, AmountMatchers)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrAmountParsingFailed)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmountWithFallback_SkipsUnparseableCapture(t *testing.T) {
	loose := Matcher{Name: "loose", Regex: regexp.MustCompile(`(?i)amount\s+(\S+)`)}
	got, err := ParseAmountWithFallback("amount ABC, Rs 40.00 debited", []Matcher{loose, AmountMatchers[0]})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(got))
}

func TestExtractMerchantWithFallback(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      string
		wantFound bool
	}{
		{name: "at", text: "Rs.2500.00 debited from A/c no XXXX1234 at AMAZON INDIA on 15-01-2024", want: "AMAZON INDIA", wantFound: true},
		{name: "vpa beats to", text: "Rs.500 debited from a/c **1234 on 12-01-24 to VPA swiggy@icici (UPI Ref No 4012)", want: "swiggy@icici", wantFound: true},
		{name: "to", text: "INR 1,000 paid to Big Bazaar. Thank you", want: "Big Bazaar", wantFound: true},
		{name: "skips own account", text: "Rs 500 credited to your account on 12-01 from RAHUL KUMAR on 12-01-24", want: "RAHUL KUMAR", wantFound: true},
		{name: "info", text: "Your a/c XX12 credited. Info: NEFT-ACME CORP. Bal", want: "NEFT-ACME CORP", wantFound: true},
		{name: "placeholder", text: "Rs 10 debited", want: UnknownMerchant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractMerchantWithFallback(tt.text, MerchantMatchers)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestNewMatcher(t *testing.T) {
	m, err := NewMatcher("custom", `paid\s+to\s+(\w+)`, nil)
	require.NoError(t, err)
	got, found := ExtractMerchantWithFallback("PAID TO Zomato", []Matcher{m})
	assert.True(t, found)
	assert.Equal(t, "Zomato", got)

	_, err = NewMatcher("broken", `(`, nil)
	assert.Error(t, err)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "₹₹₹...", truncate("₹₹₹₹₹", 3))

	text := "a" + strings.Repeat("₹", 80)
	_, err := ParseAmountWithFallback(text, AmountMatchers)
	require.ErrorIs(t, err, common.ErrAmountParsingFailed)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), "a"+strings.Repeat("₹", 59)+"...")
}
