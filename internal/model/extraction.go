package model

import "time"

// Field names one of the five canonical extraction fields.
type Field string

// Canonical extraction fields.
const (
	FieldAmount    Field = "amount"
	FieldDirection Field = "direction"
	FieldMerchant  Field = "merchant"
	FieldDate      Field = "date"
	FieldAccount   Field = "account"
)

// CanonicalFields lists every field the confidence scorer counts.
var CanonicalFields = []Field{FieldAmount, FieldDirection, FieldMerchant, FieldDate, FieldAccount}

// FailureReason enumerates why an extraction did not produce a transaction.
type FailureReason string

// Extraction failure reasons.
const (
	FailureNone                   FailureReason = ""
	FailureNoPatternMatch         FailureReason = "no_pattern_match"
	FailureAmountValidation       FailureReason = "amount_validation_failed"
	FailureNoTransactionSemantics FailureReason = "no_transaction_semantics"
)

// ExtractionStage names a step of the per-message extraction state machine.
type ExtractionStage string

// Extraction stages, in order.
const (
	StageReceived          ExtractionStage = "received"
	StagePatternLookup     ExtractionStage = "pattern_lookup"
	StageFieldExtraction   ExtractionStage = "field_extraction"
	StageAccountResolution ExtractionStage = "account_resolution"
	StageScored            ExtractionStage = "scored"
)

// ExtractionDetails is the diagnostic record of one extraction attempt.
type ExtractionDetails struct {
	Err           error
	PatternID     string
	Institution   string
	Stage         ExtractionStage // last stage reached
	FailureReason FailureReason
	FieldsFound   []Field
	Duration      time.Duration
	UsedPattern   bool
}

// HasField reports whether f was extracted.
func (d ExtractionDetails) HasField(f Field) bool {
	for _, found := range d.FieldsFound {
		if found == f {
			return true
		}
	}
	return false
}

// ExtractionResult is the outcome of running one message through the extractor.
type ExtractionResult struct {
	Transaction *Transaction
	Details     ExtractionDetails
	Confidence  float64
	Success     bool
}
