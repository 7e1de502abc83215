package engine

import (
	"context"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

// Extractor defines the contract for turning a message into a transaction candidate.
type Extractor interface {
	Extract(ctx context.Context, msg model.Message) model.ExtractionResult
}

// Categorizer defines the contract for transaction categorization.
type Categorizer interface {
	Categorize(ctx context.Context, txn model.Transaction) (*model.CategorizationResult, error)
	LearnFromUserInput(ctx context.Context, txn model.Transaction, categoryID int) error
}

// Store is the persistence the pipeline writes to.
type Store interface {
	service.TransactionStore
	IncrementMerchantTransactionCount(ctx context.Context, normalizedName string) error
}
