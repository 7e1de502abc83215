// Package categorize assigns categories to transactions from user rules,
// merchant history, merchant similarity and keyword tables.
package categorize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

const (
	// KeywordConfidence is assigned to an exact keyword hit.
	KeywordConfidence = 0.8
	// PartialMatchMultiplier discounts a substring hit against the default table.
	PartialMatchMultiplier = 0.7
)

// KeywordCategorizer maps merchant tokens to categories through a keyword table.
type KeywordCategorizer struct {
	store service.KeywordStore
}

// NewKeywordCategorizer creates a keyword categorizer backed by store.
func NewKeywordCategorizer(store service.KeywordStore) *KeywordCategorizer {
	return &KeywordCategorizer{store: store}
}

// Categorize returns the keyword-derived category for merchant, or nil when
// no token maps to one of categories.
func (k *KeywordCategorizer) Categorize(ctx context.Context, merchant string, categories []model.Category) (*model.CategorizationResult, error) {
	tokens := model.MerchantTokens(merchant)
	if len(tokens) == 0 {
		return nil, nil
	}

	for _, token := range tokens {
		mapping, err := k.store.GetKeywordCategory(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to look up keyword %q: %w", token, err)
		}
		if mapping == nil {
			continue
		}
		if category := model.FindCategory(categories, mapping.CategoryID); category != nil {
			return &model.CategorizationResult{
				Category:   *category,
				Confidence: KeywordConfidence,
				Reason:     model.ReasonKeywordMatch,
			}, nil
		}
	}

	defaults, err := k.store.GetDefaultKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load default keywords: %w", err)
	}
	// Longer keywords are more specific.
	sort.SliceStable(defaults, func(i, j int) bool {
		return len(defaults[i].Keyword) > len(defaults[j].Keyword)
	})

	for _, token := range tokens {
		for _, mapping := range defaults {
			if !partialMatch(token, mapping.Keyword) {
				continue
			}
			if category := model.FindCategory(categories, mapping.CategoryID); category != nil {
				return &model.CategorizationResult{
					Category:   *category,
					Confidence: KeywordConfidence * PartialMatchMultiplier,
					Reason:     model.ReasonKeywordMatch,
				}, nil
			}
		}
	}

	return nil, nil
}

// partialMatch reports whether token extends keyword ("swiggyinstamart" for
// "swiggy") or abbreviates it. Matches are anchored at the start of the token.
func partialMatch(token, keyword string) bool {
	if len(keyword) < model.MinTokenLength {
		return false
	}
	if strings.HasPrefix(token, keyword) {
		return true
	}
	return len(token) > model.MinTokenLength && strings.HasPrefix(keyword, token)
}

// AddKeyword maps keyword to categoryID as a user-defined mapping.
func (k *KeywordCategorizer) AddKeyword(ctx context.Context, keyword string, categoryID int) error {
	normalized, err := normalizeKeyword(keyword)
	if err != nil {
		return err
	}
	if err := k.store.AddKeyword(ctx, normalized, categoryID); err != nil {
		return fmt.Errorf("failed to add keyword %q: %w", normalized, err)
	}
	return nil
}

// RemoveKeyword deletes the user-defined mapping for keyword.
func (k *KeywordCategorizer) RemoveKeyword(ctx context.Context, keyword string) error {
	normalized, err := normalizeKeyword(keyword)
	if err != nil {
		return err
	}
	if err := k.store.RemoveKeyword(ctx, normalized); err != nil {
		return fmt.Errorf("failed to remove keyword %q: %w", normalized, err)
	}
	return nil
}

// KeywordsForCategory lists the keywords that map to categoryID.
func (k *KeywordCategorizer) KeywordsForCategory(ctx context.Context, categoryID int) ([]model.KeywordMapping, error) {
	mappings, err := k.store.GetKeywordsForCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords for category %d: %w", categoryID, err)
	}
	return mappings, nil
}

func normalizeKeyword(keyword string) (string, error) {
	normalized := model.NormalizeMerchantName(keyword)
	if len([]rune(normalized)) < model.MinTokenLength || strings.Contains(normalized, " ") {
		return "", fmt.Errorf("keyword %q must be a single token of at least %d characters: %w",
			keyword, model.MinTokenLength, common.ErrValidationFailed)
	}
	return normalized, nil
}
