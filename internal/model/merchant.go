package model

import (
	"strings"
	"time"
	"unicode"
)

// MinTokenLength is the shortest merchant token worth matching on.
const MinTokenLength = 3

// MerchantInfo is the accumulated categorization history for one merchant.
type MerchantInfo struct {
	UpdatedAt        time.Time
	NormalizedName   string
	DisplayName      string
	CategoryID       int
	TransactionCount int
	Confidence       float64
}

// KeywordMapping binds a single lowercase token to a category.
type KeywordMapping struct {
	Keyword       string
	CategoryID    int
	IsUserDefined bool
}

// NormalizeMerchantName lowercases name, replaces punctuation with spaces and
// collapses runs of whitespace. "SWIGGY*Order" and "swiggy order" normalize
// to the same key.
func NormalizeMerchantName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)
	return strings.Join(strings.Fields(mapped), " ")
}

// MerchantTokens returns the distinct normalized tokens of name that are at
// least MinTokenLength runes long, in order of first appearance.
func MerchantTokens(name string) []string {
	fields := strings.Fields(NormalizeMerchantName(name))
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < MinTokenLength || seen[field] {
			continue
		}
		seen[field] = true
		tokens = append(tokens, field)
	}
	return tokens
}
