package model

// CategoryKind gives the direction of money booked to a category.
type CategoryKind string

const (
	CategoryKindExpense CategoryKind = "expense"
	CategoryKindIncome  CategoryKind = "income"
)

// Category represents a row in categories.csv.
type Category struct {
	Name          string
	Kind          CategoryKind
	SplitEligible bool // shared cost, split across parties
	Description   string
}
