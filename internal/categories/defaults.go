package categories

import "github.com/cleared-dev/rentbook/internal/model"

// DefaultChart returns the starting chart for a small rental.
func DefaultChart() []model.Category {
	return []model.Category{
		{Name: "rent", Kind: model.CategoryKindIncome, Description: "Rent received"},
		{Name: "electricity", Kind: model.CategoryKindExpense, SplitEligible: true, Description: "Electric utility"},
		{Name: "gas", Kind: model.CategoryKindExpense, SplitEligible: true, Description: "Gas utility"},
		{Name: "water", Kind: model.CategoryKindExpense, SplitEligible: true, Description: "Water and sewer"},
		{Name: "internet", Kind: model.CategoryKindExpense, SplitEligible: true, Description: "Internet service"},
		{Name: "trash", Kind: model.CategoryKindExpense, SplitEligible: true, Description: "Garbage and recycling"},
		{Name: "mortgage", Kind: model.CategoryKindExpense},
		{Name: "insurance", Kind: model.CategoryKindExpense},
		{Name: "property_tax", Kind: model.CategoryKindExpense},
		{Name: "repairs", Kind: model.CategoryKindExpense, Description: "Repairs and maintenance"},
		{Name: "supplies", Kind: model.CategoryKindExpense},
	}
}
