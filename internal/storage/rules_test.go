package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

func TestRules_InsertAndLookup(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	food := categoryID(t, store, "Food & Dining")

	rule := &model.CategoryRule{
		MerchantPattern: "uber eats",
		CategoryID:      food,
		Confidence:      0.9,
		IsUserDefined:   true,
	}
	require.NoError(t, store.InsertRule(ctx, rule))
	assert.Positive(t, rule.ID)

	rules, err := store.GetRulesForMerchant(ctx, "uber eats")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, food, rules[0].CategoryID)
	assert.InDelta(t, 0.9, rules[0].Confidence, 0.0001)
	assert.False(t, rules[0].LastUsed.IsZero())

	none, err := store.GetRulesForMerchant(ctx, "uber")
	require.NoError(t, err)
	assert.Empty(t, none)

	err = store.InsertRule(ctx, &model.CategoryRule{MerchantPattern: "uber eats", CategoryID: food, Confidence: 0.5})
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestRules_IncrementUsage(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rule := &model.CategoryRule{MerchantPattern: "uber eats", CategoryID: categoryID(t, store, "Food & Dining"), Confidence: 0.9, IsUserDefined: true}
	require.NoError(t, store.InsertRule(ctx, rule))

	require.NoError(t, store.IncrementRuleUsage(ctx, rule.ID))
	require.NoError(t, store.IncrementRuleUsage(ctx, rule.ID))

	got, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UseCount)

	assert.ErrorIs(t, store.IncrementRuleUsage(ctx, 4242), common.ErrNotFound)
}

func TestRules_UpdateKeepsUsage(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rule := &model.CategoryRule{MerchantPattern: "decathlon", CategoryID: categoryID(t, store, "Shopping"), Confidence: 0.9, UseCount: 5}
	require.NoError(t, store.InsertRule(ctx, rule))

	rule.CategoryID = categoryID(t, store, "Entertainment")
	rule.UseCount = 0
	require.NoError(t, store.UpdateRule(ctx, rule))

	got, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.CategoryID, got.CategoryID)
	assert.Equal(t, 5, got.UseCount)

	rule.ID = 4242
	assert.ErrorIs(t, store.UpdateRule(ctx, rule), common.ErrNotFound)
}

func TestRules_UpsertUserRule(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	food := categoryID(t, store, "Food & Dining")
	shopping := categoryID(t, store, "Shopping")

	first := &model.CategoryRule{MerchantPattern: "blue tokai", CategoryID: food, Confidence: 0.9, IsUserDefined: true}
	require.NoError(t, store.UpsertUserRule(ctx, first))
	assert.Positive(t, first.ID)
	assert.Equal(t, 0, first.UseCount)

	second := &model.CategoryRule{MerchantPattern: "blue tokai", CategoryID: shopping, Confidence: 0.9, IsUserDefined: true}
	require.NoError(t, store.UpsertUserRule(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, shopping, second.CategoryID)
	assert.Equal(t, 1, second.UseCount)

	rules, err := store.GetRulesForMerchant(ctx, "blue tokai")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestRules_ConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	food := categoryID(t, store, "Food & Dining")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rule := &model.CategoryRule{MerchantPattern: "third wave", CategoryID: food, Confidence: 0.9, IsUserDefined: true}
			assert.NoError(t, store.UpsertUserRule(ctx, rule))
		}()
	}
	wg.Wait()

	rules, err := store.GetRulesForMerchant(ctx, "third wave")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 9, rules[0].UseCount)
}

func TestRules_AllAndDelete(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	shopping := categoryID(t, store, "Shopping")

	a := &model.CategoryRule{MerchantPattern: "croma", CategoryID: shopping, Confidence: 0.9, UseCount: 1}
	b := &model.CategoryRule{MerchantPattern: "ikea", CategoryID: shopping, Confidence: 0.9, UseCount: 7}
	require.NoError(t, store.InsertRule(ctx, a))
	require.NoError(t, store.InsertRule(ctx, b))

	all, err := store.GetAllRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ikea", all[0].MerchantPattern)

	require.NoError(t, store.DeleteRule(ctx, a.ID))
	assert.ErrorIs(t, store.DeleteRule(ctx, a.ID), common.ErrNotFound)
	_, err = store.GetRuleByID(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRules_Validation(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	tests := []struct {
		rule *model.CategoryRule
		name string
	}{
		{name: "nil", rule: nil},
		{name: "no merchant", rule: &model.CategoryRule{CategoryID: 1, Confidence: 0.5}},
		{name: "no category", rule: &model.CategoryRule{MerchantPattern: "x", Confidence: 0.5}},
		{name: "confidence too high", rule: &model.CategoryRule{MerchantPattern: "x", CategoryID: 1, Confidence: 2}},
		{name: "negative usage", rule: &model.CategoryRule{MerchantPattern: "x", CategoryID: 1, UseCount: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.InsertRule(ctx, tt.rule))
		})
	}
}
