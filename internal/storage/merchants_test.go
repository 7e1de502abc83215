package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

func TestMerchants_UpsertKeepsCount(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	food := categoryID(t, store, "Food & Dining")
	shopping := categoryID(t, store, "Shopping")

	require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantInfo{
		NormalizedName: "uber eats",
		DisplayName:    "Uber Eats",
		CategoryID:     food,
		Confidence:     0.85,
	}))
	require.NoError(t, store.IncrementMerchantTransactionCount(ctx, "uber eats"))
	require.NoError(t, store.IncrementMerchantTransactionCount(ctx, "uber eats"))

	require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantInfo{
		NormalizedName: "uber eats",
		CategoryID:     shopping,
		Confidence:     0.7,
	}))

	got, err := store.GetMerchantByNormalizedName(ctx, "uber eats")
	require.NoError(t, err)
	assert.Equal(t, shopping, got.CategoryID)
	assert.Equal(t, 2, got.TransactionCount)
	assert.InDelta(t, 0.7, got.Confidence, 0.0001)

	_, err = store.GetMerchantByNormalizedName(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMerchants_IncrementUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.IncrementMerchantTransactionCount(ctx, "ghost"))
	_, err := store.GetMerchantByNormalizedName(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMerchants_FindSimilar_RareCloseMatchSurvivesLimit(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	food := categoryID(t, store, "Food & Dining")

	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("cafe branch%02d", i)
		require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantInfo{NormalizedName: name, CategoryID: food, Confidence: 0.8}))
		for j := 0; j < 20; j++ {
			require.NoError(t, store.IncrementMerchantTransactionCount(ctx, name))
		}
	}
	require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantInfo{NormalizedName: "blue tokai cafe", CategoryID: food, Confidence: 0.8}))
	require.NoError(t, store.IncrementMerchantTransactionCount(ctx, "blue tokai cafe"))

	similar, err := store.FindSimilarMerchants(ctx, "blue tokai cafe indiranagar", 10)
	require.NoError(t, err)
	require.Len(t, similar, 10)
	assert.Equal(t, "blue tokai cafe", similar[0].NormalizedName)
}

func TestMerchants_FindSimilar(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	food := categoryID(t, store, "Food & Dining")

	for name, count := range map[string]int{"uber eats": 3, "uber": 5, "amazon pay": 1, "superb": 9} {
		require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantInfo{NormalizedName: name, CategoryID: food, Confidence: 0.8}))
		for i := 0; i < count; i++ {
			require.NoError(t, store.IncrementMerchantTransactionCount(ctx, name))
		}
	}

	similar, err := store.FindSimilarMerchants(ctx, "uber eats india", 10)
	require.NoError(t, err)
	var names []string
	for _, m := range similar {
		names = append(names, m.NormalizedName)
	}
	assert.Equal(t, []string{"uber eats", "uber"}, names, "whole tokens only, most shared first")

	limited, err := store.FindSimilarMerchants(ctx, "uber", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.FindSimilarMerchants(ctx, "ab", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.GetMerchants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "superb", all[0].NormalizedName)
}

func TestMerchants_Validation(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	assert.ErrorIs(t, store.UpsertMerchant(ctx, &model.MerchantInfo{CategoryID: 1}), ErrInvalidMerchant)
	assert.ErrorIs(t, store.UpsertMerchant(ctx, &model.MerchantInfo{NormalizedName: "x"}), ErrInvalidMerchant)
	assert.ErrorIs(t, store.UpsertMerchant(ctx, nil), ErrNilParameter)
}
