package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/ingest"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

const (
	// DefaultConfidence is assigned when every source misses.
	DefaultConfidence = 0.1
	// SimilarityDiscount scales a similar merchant's confidence.
	SimilarityDiscount = 0.8
	// UserRuleConfidence is the weight given to rules learned from corrections.
	UserRuleConfidence = 0.9
	// LearnedMerchantConfidence is stored on merchant history after a correction.
	LearnedMerchantConfidence = 0.85
)

// Store is the persistence the smart categorizer needs.
type Store interface {
	service.CategoryStore
	service.RuleStore
	service.MerchantStore
	service.KeywordStore
}

// Lookup is one categorization source. It returns nil when it has no opinion.
type Lookup func(ctx context.Context, merchant string, categories []model.Category) (*model.CategorizationResult, error)

// SmartCategorizer consults user rules, merchant history, similar merchants
// and keywords in that order, falling back to the uncategorized bucket.
type SmartCategorizer struct {
	store     Store
	merchants *MerchantCategorizer
	keywords  *KeywordCategorizer
	now       func() time.Time
	chain     []Lookup
}

// Option configures a SmartCategorizer.
type Option func(*SmartCategorizer)

// WithClock overrides the time source used for rule timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SmartCategorizer) {
		s.now = now
	}
}

// NewSmartCategorizer creates a categorizer backed by store.
func NewSmartCategorizer(store Store, opts ...Option) *SmartCategorizer {
	s := &SmartCategorizer{
		store:     store,
		merchants: NewMerchantCategorizer(store),
		keywords:  NewKeywordCategorizer(store),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.chain = []Lookup{
		s.userRule,
		s.merchantHistory,
		s.similarMerchant,
		s.keywords.Categorize,
	}
	return s
}

// Keywords exposes the keyword categorizer for keyword table maintenance.
func (s *SmartCategorizer) Keywords() *KeywordCategorizer {
	return s.keywords
}

// Merchants exposes the merchant categorizer for history maintenance.
func (s *SmartCategorizer) Merchants() *MerchantCategorizer {
	return s.merchants
}

// Categorize assigns a category to txn. Only categories compatible with the
// transaction's direction are considered.
func (s *SmartCategorizer) Categorize(ctx context.Context, txn model.Transaction) (*model.CategorizationResult, error) {
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return s.categorize(ctx, txn.MerchantName, CompatibleCategories(categories, txn.Direction))
}

// CategorizeMerchant assigns a category to a bare merchant name.
func (s *SmartCategorizer) CategorizeMerchant(ctx context.Context, merchant string) (*model.CategorizationResult, error) {
	categories, err := s.activeCategories(ctx)
	if err != nil {
		return nil, err
	}
	return s.categorize(ctx, merchant, categories)
}

func (s *SmartCategorizer) categorize(ctx context.Context, merchant string, categories []model.Category) (*model.CategorizationResult, error) {
	for _, lookup := range s.chain {
		result, err := lookup(ctx, merchant, categories)
		if err != nil {
			return nil, err
		}
		if result != nil {
			slog.Debug("Categorized merchant",
				"merchant", merchant,
				"category", result.Category.Name,
				"reason", result.Reason,
				"confidence", result.Confidence)
			return result, nil
		}
	}

	return s.fallback(ctx)
}

func (s *SmartCategorizer) fallback(ctx context.Context) (*model.CategorizationResult, error) {
	category, err := s.store.GetUncategorizedCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load uncategorized category: %w", err)
	}
	return &model.CategorizationResult{
		Category:   *category,
		Confidence: DefaultConfidence,
		Reason:     model.ReasonDefault,
	}, nil
}

func (s *SmartCategorizer) userRule(ctx context.Context, merchant string, categories []model.Category) (*model.CategorizationResult, error) {
	rule, category, err := s.findRule(ctx, merchant, categories)
	if err != nil || rule == nil {
		return nil, err
	}

	if err := s.store.IncrementRuleUsage(ctx, rule.ID); err != nil {
		return nil, fmt.Errorf("failed to record usage of rule %d: %w", rule.ID, err)
	}

	return &model.CategorizationResult{
		Category:   *category,
		Confidence: rule.Confidence,
		Reason:     model.ReasonUserRule,
	}, nil
}

// findRule picks the strongest rule for merchant whose category is in
// categories, user-defined rules first.
func (s *SmartCategorizer) findRule(ctx context.Context, merchant string, categories []model.Category) (*model.CategoryRule, *model.Category, error) {
	normalized := model.NormalizeMerchantName(merchant)
	if normalized == "" {
		return nil, nil, nil
	}

	rules, err := s.store.GetRulesForMerchant(ctx, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules for %q: %w", normalized, err)
	}

	var (
		best         *model.CategoryRule
		bestCategory *model.Category
	)
	for i := range rules {
		rule := &rules[i]
		category := model.FindCategory(categories, rule.CategoryID)
		if category == nil {
			continue
		}
		if best == nil || strongerRule(rule, best) {
			best, bestCategory = rule, category
		}
	}
	return best, bestCategory, nil
}

func strongerRule(a, b *model.CategoryRule) bool {
	if a.IsUserDefined != b.IsUserDefined {
		return a.IsUserDefined
	}
	return a.Confidence > b.Confidence
}

func (s *SmartCategorizer) merchantHistory(ctx context.Context, merchant string, categories []model.Category) (*model.CategorizationResult, error) {
	info, err := s.merchants.Lookup(ctx, merchant)
	if err != nil || info == nil {
		return nil, err
	}

	category := model.FindCategory(categories, info.CategoryID)
	if category == nil {
		return nil, nil
	}
	return &model.CategorizationResult{
		Category:   *category,
		Confidence: info.Confidence,
		Reason:     model.ReasonMerchantHistory,
	}, nil
}

func (s *SmartCategorizer) similarMerchant(ctx context.Context, merchant string, categories []model.Category) (*model.CategorizationResult, error) {
	similar, err := s.merchants.FindSimilar(ctx, merchant)
	if err != nil {
		return nil, err
	}

	for _, candidate := range similar {
		if category := model.FindCategory(categories, candidate.CategoryID); category != nil {
			return &model.CategorizationResult{
				Category:   *category,
				Confidence: candidate.Confidence * SimilarityDiscount,
				Reason:     model.ReasonSimilarityInference,
			}, nil
		}
	}
	return nil, nil
}

// LearnFromUserInput records that txn's merchant belongs in categoryID. The
// rule and merchant record are upserted on the normalized merchant, so
// repeating a correction never creates a second rule.
func (s *SmartCategorizer) LearnFromUserInput(ctx context.Context, txn model.Transaction, categoryID int) error {
	normalized := model.NormalizeMerchantName(txn.MerchantName)
	if normalized == "" || normalized == model.NormalizeMerchantName(ingest.UnknownMerchant) {
		return fmt.Errorf("cannot learn a category for merchant %q: %w", txn.MerchantName, common.ErrValidationFailed)
	}

	category, err := s.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to load category %d: %w", categoryID, err)
	}
	if err := ValidateDirection(txn.Direction, *category); err != nil {
		return err
	}

	now := s.now()
	rule := &model.CategoryRule{
		MerchantPattern: normalized,
		CategoryID:      category.ID,
		Confidence:      UserRuleConfidence,
		IsUserDefined:   true,
		CreatedAt:       now,
		LastUsed:        now,
	}
	if err := s.store.UpsertUserRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule for %q: %w", normalized, err)
	}

	if err := s.merchants.UpdateCategory(ctx, txn.MerchantName, category.ID, LearnedMerchantConfidence); err != nil {
		return err
	}
	if err := s.merchants.IncrementTransactionCount(ctx, txn.MerchantName); err != nil {
		return err
	}

	slog.Info("Learned merchant category",
		"merchant", normalized,
		"category", category.Name)
	return nil
}

// SuggestCategories returns ranked candidate categories for merchant from
// merchant history, keywords and similar merchants. User rules are not
// suggestions and are left out.
func (s *SmartCategorizer) SuggestCategories(ctx context.Context, merchant string) (model.CategorySuggestions, error) {
	categories, err := s.activeCategories(ctx)
	if err != nil {
		return nil, err
	}

	var suggestions model.CategorySuggestions
	add := func(result *model.CategorizationResult) {
		if result == nil {
			return
		}
		suggestions = append(suggestions, model.CategorySuggestion{
			Category:   result.Category,
			Confidence: result.Confidence,
			Reason:     result.Reason,
		})
	}

	history, err := s.merchantHistory(ctx, merchant, categories)
	if err != nil {
		return nil, err
	}
	add(history)

	keyword, err := s.keywords.Categorize(ctx, merchant, categories)
	if err != nil {
		return nil, err
	}
	add(keyword)

	similar, err := s.merchants.FindSimilar(ctx, merchant)
	if err != nil {
		return nil, err
	}
	for _, candidate := range similar {
		if category := model.FindCategory(categories, candidate.CategoryID); category != nil {
			add(&model.CategorizationResult{
				Category:   *category,
				Confidence: candidate.Confidence * SimilarityDiscount,
				Reason:     model.ReasonSimilarityInference,
			})
		}
	}

	return suggestions.Ranked(), nil
}

// GetConfidence returns the confidence the categorization chain would assign
// to categoryID for merchant, or 0 when no source supports it. Rule usage is
// not recorded.
func (s *SmartCategorizer) GetConfidence(ctx context.Context, merchant string, categoryID int) (float64, error) {
	categories, err := s.activeCategories(ctx)
	if err != nil {
		return 0, err
	}
	target := model.FindCategory(categories, categoryID)
	if target == nil {
		return 0, nil
	}
	only := []model.Category{*target}

	rule, _, err := s.findRule(ctx, merchant, only)
	if err != nil {
		return 0, err
	}
	if rule != nil {
		return rule.Confidence, nil
	}

	for _, lookup := range []Lookup{s.merchantHistory, s.similarMerchant, s.keywords.Categorize} {
		result, err := lookup(ctx, merchant, only)
		if err != nil {
			return 0, err
		}
		if result != nil {
			return result.Confidence, nil
		}
	}

	if target.Name == model.UncategorizedCategoryName {
		return DefaultConfidence, nil
	}
	return 0, nil
}

func (s *SmartCategorizer) activeCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return CompatibleCategories(categories, ""), nil
}
