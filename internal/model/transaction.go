package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource records how a transaction entered the system.
type TransactionSource string

const (
	// SourceAutomatic marks transactions extracted from notification messages.
	SourceAutomatic TransactionSource = "automatic"
	// SourceStatement marks transactions imported from OFX/QFX statements.
	SourceStatement TransactionSource = "statement"
)

// Transaction is a structured financial transaction, either a freshly extracted
// candidate or its persisted, categorized form.
type Transaction struct {
	Date               time.Time
	ID                 string
	MerchantName       string
	AccountIdentifier  string // Masked identifier as it appeared (e.g. XXXX1234)
	AccountRef         string // Internal account reference, empty when unresolved
	Sender             string
	RawMessage         string
	Hash               string
	Source             TransactionSource
	Direction          Direction
	CategoryReason     CategorizationReason
	Amount             decimal.Decimal
	CategoryConfidence float64
	CategoryID         int
}

// GenerateHash creates a stable fingerprint of the transaction's identifying fields.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		t.Date.Format("2006-01-02T15:04"),
		t.Amount.StringFixed(2),
		t.MerchantName,
		t.AccountIdentifier,
		t.Direction)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
