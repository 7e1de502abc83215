package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-sms/internal/accounts"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

// Categorizer assigns categories to statement transactions.
type Categorizer interface {
	Categorize(ctx context.Context, txn model.Transaction) (*model.CategorizationResult, error)
}

// TransactionSaver stores transactions in bulk, skipping ones already present.
type TransactionSaver interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
}

// ImportOptions overrides values a statement may lack.
type ImportOptions struct {
	// Institution replaces the statement's FI/ORG.
	Institution string
	// AccountRef names the account new mappings are created for. Defaults to
	// the institution slug plus the last four digits.
	AccountRef string
}

// ImportResult summarizes one imported file.
type ImportResult struct {
	Institution string
	Mappings    []model.AccountMapping
	Parsed      int
	Imported    int
}

// Importer parses statements, registers their accounts and stores their
// categorized transactions.
type Importer struct {
	parser      *Parser
	resolver    *accounts.Resolver
	categorizer Categorizer
	store       TransactionSaver
}

// NewImporter creates an importer.
func NewImporter(resolver *accounts.Resolver, categorizer Categorizer, store TransactionSaver) *Importer {
	return &Importer{
		parser:      NewParser(),
		resolver:    resolver,
		categorizer: categorizer,
		store:       store,
	}
}

// DefaultAccountRef derives an account reference from an institution and a
// full account number, e.g. "hdfc-bank-7890".
func DefaultAccountRef(institution, accountID string) string {
	slug := strings.ReplaceAll(model.NormalizeMerchantName(institution), " ", "-")
	digits := accountID
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return slug + "-" + digits
}

// Import reads one statement. Accounts seen for the first time get a mapping
// so later notifications quoting the masked number resolve to them.
func (i *Importer) Import(ctx context.Context, reader io.Reader, opts ImportOptions) (*ImportResult, error) {
	stmt, err := i.parser.ParseFile(ctx, reader)
	if err != nil {
		return nil, err
	}

	institution := strings.TrimSpace(opts.Institution)
	if institution == "" {
		institution = stmt.Institution
	}
	if institution == "" {
		return nil, common.NewUserError("statement has no institution; pass one explicitly",
			fmt.Errorf("missing FI/ORG: %w", common.ErrValidationFailed))
	}

	result := &ImportResult{Institution: institution, Parsed: len(stmt.Transactions)}
	refs := make(map[string]string, len(stmt.Accounts))
	for _, account := range stmt.Accounts {
		mapping, err := i.mappingFor(ctx, institution, account, opts.AccountRef)
		if err != nil {
			return nil, err
		}
		refs[account.Identifier()] = mapping.AccountRef
		result.Mappings = append(result.Mappings, *mapping)
	}

	for idx := range stmt.Transactions {
		txn := &stmt.Transactions[idx]
		txn.Sender = institution
		txn.AccountRef = refs[txn.AccountIdentifier]

		categorization, err := i.categorizer.Categorize(ctx, *txn)
		if err != nil {
			return nil, fmt.Errorf("failed to categorize %q: %w", txn.MerchantName, err)
		}
		txn.CategoryID = categorization.Category.ID
		txn.CategoryConfidence = categorization.Confidence
		txn.CategoryReason = categorization.Reason
	}

	if len(stmt.Transactions) > 0 {
		result.Imported, err = i.store.SaveTransactions(ctx, stmt.Transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to save statement transactions: %w", err)
		}
	}

	slog.Info("Imported statement",
		"institution", institution,
		"accounts", len(result.Mappings),
		"parsed", result.Parsed,
		"imported", result.Imported)
	return result, nil
}

func (i *Importer) mappingFor(ctx context.Context, institution string, account Account, accountRef string) (*model.AccountMapping, error) {
	identifier := account.Identifier()
	mapping, err := i.resolver.FindAccount(ctx, institution, identifier)
	if err != nil {
		return nil, err
	}
	if mapping != nil {
		return mapping, nil
	}

	if accountRef == "" {
		accountRef = DefaultAccountRef(institution, account.ID)
	}
	mapping, err = i.resolver.CreateMapping(ctx, accountRef, institution, identifier)
	if err != nil {
		return nil, err
	}
	slog.Info("Registered statement account",
		"institution", institution,
		"identifier", identifier,
		"account", accountRef)
	return mapping, nil
}
