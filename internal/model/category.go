// Package model defines the core data structures shared by the extraction and
// categorization pipeline.
package model

import "time"

// CategoryType indicates whether a category is for income, expense, or system use.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeSystem represents system-managed categories (transfers, uncategorized).
	CategoryTypeSystem CategoryType = "system"
)

// UncategorizedCategoryName is the name of the default bucket every store must provide.
const UncategorizedCategoryName = "Uncategorized"

// Category represents a spending or income category.
type Category struct {
	CreatedAt time.Time
	Name      string
	Type      CategoryType
	ID        int
	IsActive  bool
}

// FindCategory returns the category with the given ID from categories, or nil.
func FindCategory(categories []Category, id int) *Category {
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i]
		}
	}
	return nil
}
