package model

// CategorizationReason tags which source produced a categorization.
type CategorizationReason string

// Categorization reasons, in the order the smart categorizer consults them.
const (
	ReasonUserRule            CategorizationReason = "user_rule"
	ReasonMerchantHistory     CategorizationReason = "merchant_history"
	ReasonSimilarityInference CategorizationReason = "similarity_inference"
	ReasonKeywordMatch        CategorizationReason = "keyword_match"
	ReasonDefault             CategorizationReason = "default"
)

// CategorizationResult is the category assigned to a transaction and why.
type CategorizationResult struct {
	Reason     CategorizationReason
	Category   Category
	Confidence float64
}
