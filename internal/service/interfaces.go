// Package service defines the collaborator contracts the pipeline consumes.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
)

// CategoryStore provides read access to the category list.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetUncategorizedCategory(ctx context.Context) (*model.Category, error)
}

// TransactionStore persists categorized transactions.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	UpdateTransactionCategory(ctx context.Context, id string, result model.CategorizationResult) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
}

// RuleStore manages user category rules.
type RuleStore interface {
	GetRulesForMerchant(ctx context.Context, normalizedMerchant string) ([]model.CategoryRule, error)
	InsertRule(ctx context.Context, rule *model.CategoryRule) error
	UpdateRule(ctx context.Context, rule *model.CategoryRule) error
	IncrementRuleUsage(ctx context.Context, id int) error
	// UpsertUserRule creates or updates the user rule for a merchant in one
	// atomic step. Usage count only grows.
	UpsertUserRule(ctx context.Context, rule *model.CategoryRule) error
	GetAllRules(ctx context.Context) ([]model.CategoryRule, error)
}

// MerchantStore manages merchant categorization history.
type MerchantStore interface {
	GetMerchantByNormalizedName(ctx context.Context, normalizedName string) (*model.MerchantInfo, error)
	// UpsertMerchant inserts or updates the merchant's category and confidence,
	// keeping its transaction count.
	UpsertMerchant(ctx context.Context, merchant *model.MerchantInfo) error
	IncrementMerchantTransactionCount(ctx context.Context, normalizedName string) error
	FindSimilarMerchants(ctx context.Context, normalizedName string, limit int) ([]model.MerchantInfo, error)
}

// KeywordStore manages keyword to category mappings.
type KeywordStore interface {
	// GetKeywordCategory returns the mapping for an exact keyword, user
	// mappings taking precedence over the default table. Nil when absent.
	GetKeywordCategory(ctx context.Context, keyword string) (*model.KeywordMapping, error)
	GetDefaultKeywords(ctx context.Context) ([]model.KeywordMapping, error)
	AddKeyword(ctx context.Context, keyword string, categoryID int) error
	RemoveKeyword(ctx context.Context, keyword string) error
	GetKeywordsForCategory(ctx context.Context, categoryID int) ([]model.KeywordMapping, error)
}

// AccountMappingStore persists account identifier mappings.
type AccountMappingStore interface {
	// SaveMapping inserts mapping, or reactivates and returns the existing row
	// for the same (account, institution, identifier) triple.
	SaveMapping(ctx context.Context, mapping *model.AccountMapping) error
	FindActiveMapping(ctx context.Context, institution, identifier string) (*model.AccountMapping, error)
	GetMappingsForAccount(ctx context.Context, accountRef string) ([]model.AccountMapping, error)
	GetAllMappings(ctx context.Context) ([]model.AccountMapping, error)
	SetMappingActive(ctx context.Context, id string, active bool) error
	DeleteMapping(ctx context.Context, id string) error
}

// PatternStore persists message patterns created by administrators.
type PatternStore interface {
	GetMessagePatterns(ctx context.Context) ([]model.MessagePattern, error)
	SaveMessagePattern(ctx context.Context, pattern *model.MessagePattern) error
	SetMessagePatternActive(ctx context.Context, id string, active bool) error
	DeleteMessagePattern(ctx context.Context, id string) error
}

// Storage is the full persistence surface implemented by the SQLite store.
type Storage interface {
	CategoryStore
	TransactionStore
	RuleStore
	MerchantStore
	KeywordStore
	AccountMappingStore
	PatternStore
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for flaky operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
