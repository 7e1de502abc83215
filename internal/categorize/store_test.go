package categorize

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

const (
	uncategorizedID = 1
	shoppingID      = 2
	foodID          = 3
	transportID     = 4
	salaryID        = 5
	transferID      = 6
)

func testCategories() []model.Category {
	return []model.Category{
		{ID: uncategorizedID, Name: model.UncategorizedCategoryName, Type: model.CategoryTypeSystem, IsActive: true},
		{ID: shoppingID, Name: "Shopping", Type: model.CategoryTypeExpense, IsActive: true},
		{ID: foodID, Name: "Food & Dining", Type: model.CategoryTypeExpense, IsActive: true},
		{ID: transportID, Name: "Transportation", Type: model.CategoryTypeExpense, IsActive: true},
		{ID: salaryID, Name: "Salary", Type: model.CategoryTypeIncome, IsActive: true},
		{ID: transferID, Name: "Transfer", Type: model.CategoryTypeSystem, IsActive: true},
	}
}

// fakeStore is an in-memory Store that counts keyword lookups.
type fakeStore struct {
	merchants       map[string]model.MerchantInfo
	userKeywords    map[string]int
	categories      []model.Category
	rules           []model.CategoryRule
	defaultKeywords []model.KeywordMapping
	keywordLookups  int
	defaultLoads    int
	nextRuleID      int
	mu              sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories:   testCategories(),
		merchants:    make(map[string]model.MerchantInfo),
		userKeywords: make(map[string]int),
		defaultKeywords: []model.KeywordMapping{
			{Keyword: "swiggy", CategoryID: foodID},
			{Keyword: "zomato", CategoryID: foodID},
			{Keyword: "uber", CategoryID: transportID},
			{Keyword: "flipkart", CategoryID: shoppingID},
		},
		nextRuleID: 1,
	}
}

func (f *fakeStore) GetCategories(_ context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Category, len(f.categories))
	copy(out, f.categories)
	return out, nil
}

func (f *fakeStore) GetCategoryByID(_ context.Context, id int) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := model.FindCategory(f.categories, id); c != nil {
		category := *c
		return &category, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) GetCategoryByName(_ context.Context, name string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			category := c
			return &category, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) GetUncategorizedCategory(ctx context.Context) (*model.Category, error) {
	return f.GetCategoryByName(ctx, model.UncategorizedCategoryName)
}

func (f *fakeStore) GetRulesForMerchant(_ context.Context, normalizedMerchant string) ([]model.CategoryRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CategoryRule
	for _, r := range f.rules {
		if r.MerchantPattern == normalizedMerchant {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertRule(_ context.Context, rule *model.CategoryRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule.ID = f.nextRuleID
	f.nextRuleID++
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeStore) UpdateRule(_ context.Context, rule *model.CategoryRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == rule.ID {
			f.rules[i] = *rule
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeStore) IncrementRuleUsage(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == id {
			f.rules[i].UseCount++
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeStore) UpsertUserRule(_ context.Context, rule *model.CategoryRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		existing := &f.rules[i]
		if existing.MerchantPattern == rule.MerchantPattern && existing.IsUserDefined {
			existing.CategoryID = rule.CategoryID
			existing.Confidence = rule.Confidence
			existing.LastUsed = rule.LastUsed
			existing.UseCount++
			*rule = *existing
			return nil
		}
	}
	rule.ID = f.nextRuleID
	f.nextRuleID++
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeStore) GetAllRules(_ context.Context) ([]model.CategoryRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CategoryRule, len(f.rules))
	copy(out, f.rules)
	return out, nil
}

func (f *fakeStore) GetMerchantByNormalizedName(_ context.Context, normalizedName string) (*model.MerchantInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.merchants[normalizedName]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &info, nil
}

func (f *fakeStore) UpsertMerchant(_ context.Context, merchant *model.MerchantInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := *merchant
	if existing, ok := f.merchants[merchant.NormalizedName]; ok {
		info.TransactionCount = existing.TransactionCount
	}
	f.merchants[merchant.NormalizedName] = info
	return nil
}

func (f *fakeStore) IncrementMerchantTransactionCount(_ context.Context, normalizedName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.merchants[normalizedName]
	if !ok {
		return nil
	}
	info.TransactionCount++
	f.merchants[normalizedName] = info
	return nil
}

func (f *fakeStore) FindSimilarMerchants(_ context.Context, normalizedName string, limit int) ([]model.MerchantInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens := model.MerchantTokens(normalizedName)
	var out []model.MerchantInfo
	for name, info := range f.merchants {
		for _, token := range tokens {
			if strings.Contains(name, token) {
				out = append(out, info)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetKeywordCategory(_ context.Context, keyword string) (*model.KeywordMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordLookups++
	if id, ok := f.userKeywords[keyword]; ok {
		return &model.KeywordMapping{Keyword: keyword, CategoryID: id, IsUserDefined: true}, nil
	}
	for _, m := range f.defaultKeywords {
		if m.Keyword == keyword {
			mapping := m
			return &mapping, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetDefaultKeywords(_ context.Context) ([]model.KeywordMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultLoads++
	out := make([]model.KeywordMapping, len(f.defaultKeywords))
	copy(out, f.defaultKeywords)
	return out, nil
}

func (f *fakeStore) AddKeyword(_ context.Context, keyword string, categoryID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userKeywords[keyword] = categoryID
	return nil
}

func (f *fakeStore) RemoveKeyword(_ context.Context, keyword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.userKeywords[keyword]; !ok {
		return common.ErrNotFound
	}
	delete(f.userKeywords, keyword)
	return nil
}

func (f *fakeStore) GetKeywordsForCategory(_ context.Context, categoryID int) ([]model.KeywordMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KeywordMapping
	for keyword, id := range f.userKeywords {
		if id == categoryID {
			out = append(out, model.KeywordMapping{Keyword: keyword, CategoryID: id, IsUserDefined: true})
		}
	}
	for _, m := range f.defaultKeywords {
		if m.CategoryID == categoryID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out, nil
}

func (f *fakeStore) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keywordLookups + f.defaultLoads
}

func (f *fakeStore) userRulesFor(normalized string) []model.CategoryRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CategoryRule
	for _, r := range f.rules {
		if r.MerchantPattern == normalized && r.IsUserDefined {
			out = append(out, r)
		}
	}
	return out
}
