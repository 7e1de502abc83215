package model

import "time"

// CategoryRule is a durable merchant-to-category binding, usually created from a
// user correction. MerchantPattern holds the normalized merchant name.
type CategoryRule struct {
	CreatedAt       time.Time `json:"created_at"`
	LastUsed        time.Time `json:"last_used"`
	MerchantPattern string    `json:"merchant_pattern"`
	ID              int       `json:"id"`
	CategoryID      int       `json:"category_id"`
	UseCount        int       `json:"use_count"`
	Confidence      float64   `json:"confidence"`
	IsUserDefined   bool      `json:"is_user_defined"`
}
