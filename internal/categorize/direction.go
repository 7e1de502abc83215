package categorize

import (
	"fmt"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

// ValidateDirection ensures a transaction moving in direction may be filed
// under category. System categories accept any direction, and an unset
// direction accepts any category.
func ValidateDirection(direction model.Direction, category model.Category) error {
	if category.Type == model.CategoryTypeSystem || direction == "" {
		return nil
	}

	var expectedType model.CategoryType
	switch direction {
	case model.DirectionIncome, model.DirectionTransferIn:
		expectedType = model.CategoryTypeIncome
	case model.DirectionExpense, model.DirectionTransferOut:
		expectedType = model.CategoryTypeExpense
	default:
		return fmt.Errorf("unknown transaction direction %q: %w", direction, common.ErrValidationFailed)
	}

	if category.Type != expectedType {
		return fmt.Errorf("category %q has type %s but transaction has direction %s: %w",
			category.Name, category.Type, direction, common.ErrValidationFailed)
	}
	return nil
}

// CompatibleCategories returns the active categories a transaction moving in
// direction may be filed under.
func CompatibleCategories(categories []model.Category, direction model.Direction) []model.Category {
	compatible := make([]model.Category, 0, len(categories))
	for _, category := range categories {
		if !category.IsActive {
			continue
		}
		if ValidateDirection(direction, category) != nil {
			continue
		}
		compatible = append(compatible, category)
	}
	return compatible
}
