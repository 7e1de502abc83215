package categorize

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordCategorizer_Categorize(t *testing.T) {
	tests := []struct {
		name           string
		merchant       string
		userKeywords   map[string]int
		wantCategory   string
		wantConfidence float64
		wantNil        bool
	}{
		{
			name:           "user mapping exact hit",
			merchant:       "Amazon",
			userKeywords:   map[string]int{"amazon": shoppingID},
			wantCategory:   "Shopping",
			wantConfidence: 0.8,
		},
		{
			name:           "default table exact hit",
			merchant:       "SWIGGY*ORDER",
			wantCategory:   "Food & Dining",
			wantConfidence: 0.8,
		},
		{
			name:           "user mapping overrides default",
			merchant:       "Uber",
			userKeywords:   map[string]int{"uber": foodID},
			wantCategory:   "Food & Dining",
			wantConfidence: 0.8,
		},
		{
			name:           "partial match against defaults",
			merchant:       "Swiggyinstamart",
			wantCategory:   "Food & Dining",
			wantConfidence: 0.56,
		},
		{
			name:     "no match",
			merchant: "Acme Hardware",
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			for keyword, id := range tt.userKeywords {
				store.userKeywords[keyword] = id
			}
			k := NewKeywordCategorizer(store)

			result, err := k.Categorize(context.Background(), tt.merchant, testCategories())
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.wantCategory, result.Category.Name)
			assert.Equal(t, model.ReasonKeywordMatch, result.Reason)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 0.0001)
		})
	}
}

func TestKeywordCategorizer_ShortTokensSkipStore(t *testing.T) {
	store := newFakeStore()
	k := NewKeywordCategorizer(store)

	for _, merchant := range []string{"AB CD", "x y z", "", "--"} {
		result, err := k.Categorize(context.Background(), merchant, testCategories())
		require.NoError(t, err)
		assert.Nil(t, result)
	}
	assert.Zero(t, store.lookups(), "no store call expected for short tokens")
}

func TestKeywordCategorizer_IgnoresUnavailableCategories(t *testing.T) {
	store := newFakeStore()
	store.userKeywords["payroll"] = salaryID
	k := NewKeywordCategorizer(store)

	expenseOnly := CompatibleCategories(testCategories(), model.DirectionExpense)
	result, err := k.Categorize(context.Background(), "Payroll", expenseOnly)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestKeywordCategorizer_Maintenance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	k := NewKeywordCategorizer(store)

	require.NoError(t, k.AddKeyword(ctx, "  Dominos ", foodID))
	assert.Equal(t, foodID, store.userKeywords["dominos"])

	keywords, err := k.KeywordsForCategory(ctx, foodID)
	require.NoError(t, err)
	var names []string
	for _, m := range keywords {
		names = append(names, m.Keyword)
	}
	assert.Equal(t, []string{"dominos", "swiggy", "zomato"}, names)

	require.NoError(t, k.RemoveKeyword(ctx, "DOMINOS"))
	_, ok := store.userKeywords["dominos"]
	assert.False(t, ok)

	err = k.RemoveKeyword(ctx, "dominos")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestKeywordCategorizer_AddKeywordValidation(t *testing.T) {
	k := NewKeywordCategorizer(newFakeStore())

	for _, keyword := range []string{"ab", "two words", "  "} {
		err := k.AddKeyword(context.Background(), keyword, foodID)
		assert.ErrorIs(t, err, common.ErrValidationFailed, keyword)
	}
}
