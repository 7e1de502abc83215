package categorize

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

const (
	// DefaultSimilarLimit caps how many candidates FindSimilar asks the store for.
	DefaultSimilarLimit = 10
	// MinSimilarity is the token similarity below which a merchant is not similar.
	MinSimilarity = 0.5
)

// SimilarMerchant is a merchant with its similarity to the queried name.
type SimilarMerchant struct {
	model.MerchantInfo
	Similarity float64
}

// MerchantCategorizer reads and maintains per-merchant categorization history.
type MerchantCategorizer struct {
	store        service.MerchantStore
	similarLimit int
}

// NewMerchantCategorizer creates a merchant categorizer backed by store.
func NewMerchantCategorizer(store service.MerchantStore) *MerchantCategorizer {
	return &MerchantCategorizer{store: store, similarLimit: DefaultSimilarLimit}
}

// Lookup returns the history for the exact normalized merchant, or nil.
func (m *MerchantCategorizer) Lookup(ctx context.Context, merchant string) (*model.MerchantInfo, error) {
	normalized := model.NormalizeMerchantName(merchant)
	if normalized == "" {
		return nil, nil
	}

	info, err := m.store.GetMerchantByNormalizedName(ctx, normalized)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up merchant %q: %w", normalized, err)
	}
	return info, nil
}

// FindSimilar returns other known merchants whose names share enough tokens
// with merchant, most similar first.
func (m *MerchantCategorizer) FindSimilar(ctx context.Context, merchant string) ([]SimilarMerchant, error) {
	normalized := model.NormalizeMerchantName(merchant)
	if len(model.MerchantTokens(normalized)) == 0 {
		return nil, nil
	}

	candidates, err := m.store.FindSimilarMerchants(ctx, normalized, m.similarLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find merchants similar to %q: %w", normalized, err)
	}

	similar := make([]SimilarMerchant, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.NormalizedName == normalized {
			continue
		}
		score := Similarity(normalized, candidate.NormalizedName)
		if score < MinSimilarity {
			continue
		}
		similar = append(similar, SimilarMerchant{MerchantInfo: candidate, Similarity: score})
	}

	sort.SliceStable(similar, func(i, j int) bool {
		if similar[i].Similarity != similar[j].Similarity {
			return similar[i].Similarity > similar[j].Similarity
		}
		return similar[i].TransactionCount > similar[j].TransactionCount
	})
	return similar, nil
}

// UpdateCategory records categoryID as merchant's category with the given
// confidence, keeping its transaction count.
func (m *MerchantCategorizer) UpdateCategory(ctx context.Context, merchant string, categoryID int, confidence float64) error {
	normalized := model.NormalizeMerchantName(merchant)
	if normalized == "" {
		return fmt.Errorf("merchant name %q is empty after normalization: %w", merchant, common.ErrValidationFailed)
	}

	err := m.store.UpsertMerchant(ctx, &model.MerchantInfo{
		NormalizedName: normalized,
		DisplayName:    merchant,
		CategoryID:     categoryID,
		Confidence:     confidence,
	})
	if err != nil {
		return fmt.Errorf("failed to update merchant %q: %w", normalized, err)
	}
	return nil
}

// IncrementTransactionCount bumps the number of transactions seen for merchant.
func (m *MerchantCategorizer) IncrementTransactionCount(ctx context.Context, merchant string) error {
	normalized := model.NormalizeMerchantName(merchant)
	if normalized == "" {
		return nil
	}
	if err := m.store.IncrementMerchantTransactionCount(ctx, normalized); err != nil {
		return fmt.Errorf("failed to count transaction for merchant %q: %w", normalized, err)
	}
	return nil
}

// Similarity is the Dice coefficient of the two names' token sets.
func Similarity(a, b string) float64 {
	tokensA := model.MerchantTokens(a)
	tokensB := model.MerchantTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	set := make(map[string]bool, len(tokensA))
	for _, token := range tokensA {
		set[token] = true
	}
	shared := 0
	for _, token := range tokensB {
		if set[token] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(tokensA)+len(tokensB))
}
