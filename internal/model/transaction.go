package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is an unprocessed bank-feed record.
type RawTransaction struct {
	ID          int64
	PostedDate  time.Time
	Amount      decimal.Decimal // negative = outflow, positive = inflow
	Description string
	Payee       string
	ExternalID  string // optional, feed-specific
	Source      string // parser format that produced the row

	Processed bool
	Excluded  bool

	// Last classifier suggestion, kept for the review queue.
	SuggestedCategory string
	SuggestedAction   Action
	RuleID            int
	Confidence        decimal.Decimal

	LedgerEntryID int64 // zero until committed
	CreatedAt     time.Time
}

// MatchText is the text classification rules are evaluated against.
func (t RawTransaction) MatchText() string {
	if t.Payee == "" {
		return t.Description
	}
	return t.Description + " " + t.Payee
}

// Merchant returns the payee when present, else the description.
func (t RawTransaction) Merchant() string {
	if strings.TrimSpace(t.Payee) != "" {
		return t.Payee
	}
	return t.Description
}

// NaturalKey identifies the real-world transaction independent of any feed id.
func (t RawTransaction) NaturalKey() string {
	return t.PostedDate.Format(DateFormat) + "|" + t.Amount.StringFixed(2) + "|" + NormalizeText(t.Description)
}

// DateFormat is the on-disk date layout.
const DateFormat = "2006-01-02"

// NormalizeText upper-cases s and collapses runs of whitespace into one space.
// "  Pge   web  pay " -> "PGE WEB PAY"
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
