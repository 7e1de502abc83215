package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/accounts"
	"github.com/Veraticus/spice-sms/internal/categorize"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/storage"
	"github.com/Veraticus/spice-sms/internal/testutil"
)

func newTestImporter(t *testing.T) (*Importer, *testutil.TestDB, *accounts.Resolver) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	resolver := accounts.NewResolver(db.Storage)
	return NewImporter(resolver, categorize.NewSmartCategorizer(db.Storage), db.Storage), db, resolver
}

func TestImporter_RegistersAccountsAndCategorizes(t *testing.T) {
	ctx := context.Background()
	importer, db, resolver := newTestImporter(t)

	result, err := importer.Import(ctx, strings.NewReader(sampleBankOFX), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "HDFC Bank", result.Institution)
	assert.Equal(t, 4, result.Parsed)
	assert.Equal(t, 4, result.Imported)
	require.Len(t, result.Mappings, 1)
	assert.Equal(t, "hdfc-bank-7890", result.Mappings[0].AccountRef)

	mapping, err := resolver.FindAccount(ctx, "hdfc bank", "XX7890")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "hdfc-bank-7890", mapping.AccountRef)

	transactions, err := db.Storage.ListTransactions(ctx, storage.TransactionFilter{AccountRef: "hdfc-bank-7890"})
	require.NoError(t, err)
	require.Len(t, transactions, 4)

	byMerchant := make(map[string]model.Transaction)
	for _, txn := range transactions {
		byMerchant[txn.MerchantName] = txn
	}
	assert.Equal(t, db.MustGetCategory("Food & Dining").ID, byMerchant["SWIGGY"].CategoryID)
	assert.Equal(t, db.MustGetCategory("Salary").ID, byMerchant["ACME CORP SALARY"].CategoryID)
	assert.Equal(t, model.ReasonKeywordMatch, byMerchant["ACME CORP SALARY"].CategoryReason)
}

func TestImporter_ReimportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	importer, db, resolver := newTestImporter(t)

	_, err := importer.Import(ctx, strings.NewReader(sampleBankOFX), ImportOptions{})
	require.NoError(t, err)
	again, err := importer.Import(ctx, strings.NewReader(sampleBankOFX), ImportOptions{})
	require.NoError(t, err)
	assert.Zero(t, again.Imported)

	count, err := db.Storage.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	mappings, err := resolver.AllMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
}

func TestImporter_Institution(t *testing.T) {
	ctx := context.Background()
	importer, _, resolver := newTestImporter(t)

	_, err := importer.Import(ctx, strings.NewReader(sampleCreditCardOFX), ImportOptions{})
	assert.ErrorIs(t, err, common.ErrValidationFailed)

	result, err := importer.Import(ctx, strings.NewReader(sampleCreditCardOFX), ImportOptions{
		Institution: "ICICI Bank",
		AccountRef:  "icici-card",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	mapping, err := resolver.FindAccount(ctx, "ICICI BANK", "XX1111")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "icici-card", mapping.AccountRef)
}

func TestImporter_ReusesExistingMapping(t *testing.T) {
	ctx := context.Background()
	importer, _, resolver := newTestImporter(t)

	_, err := resolver.CreateMapping(ctx, "primary-savings", "HDFC Bank", "XX7890")
	require.NoError(t, err)

	result, err := importer.Import(ctx, strings.NewReader(sampleBankOFX), ImportOptions{})
	require.NoError(t, err)
	require.Len(t, result.Mappings, 1)
	assert.Equal(t, "primary-savings", result.Mappings[0].AccountRef)
}
