package model

import (
	"fmt"
	"sort"
)

// CategorySuggestion is one candidate category for a merchant.
type CategorySuggestion struct {
	Reason     CategorizationReason
	Category   Category
	Confidence float64
}

// Validate ensures the suggestion has usable data.
func (s *CategorySuggestion) Validate() error {
	if s.Category.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", s.Confidence)
	}
	return nil
}

// CategorySuggestions is a slice of suggestions that supports ranking.
type CategorySuggestions []CategorySuggestion

// Len implements sort.Interface.
func (s CategorySuggestions) Len() int {
	return len(s)
}

// Less implements sort.Interface - higher confidence comes first.
func (s CategorySuggestions) Less(i, j int) bool {
	if s[i].Confidence != s[j].Confidence {
		return s[i].Confidence > s[j].Confidence
	}
	return s[i].Category.Name < s[j].Category.Name
}

// Swap implements sort.Interface.
func (s CategorySuggestions) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Ranked returns the suggestions sorted by confidence with only the strongest
// entry kept for each category.
func (s CategorySuggestions) Ranked() CategorySuggestions {
	sorted := make(CategorySuggestions, len(s))
	copy(sorted, s)
	sort.Stable(sorted)

	seen := make(map[int]bool, len(sorted))
	result := make(CategorySuggestions, 0, len(sorted))
	for _, suggestion := range sorted {
		if seen[suggestion.Category.ID] {
			continue
		}
		seen[suggestion.Category.ID] = true
		result = append(result, suggestion)
	}
	return result
}

// Top returns the highest-confidence suggestion, or nil if empty.
func (s CategorySuggestions) Top() *CategorySuggestion {
	ranked := s.Ranked()
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

// TopN returns the N highest-confidence distinct suggestions.
func (s CategorySuggestions) TopN(n int) CategorySuggestions {
	if n <= 0 {
		return CategorySuggestions{}
	}
	ranked := s.Ranked()
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
