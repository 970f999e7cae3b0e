package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UtilityAdjustment nets a paid obligation back against the bill it came from.
type UtilityAdjustment struct {
	ID            int64
	LedgerEntryID int64
	ObligationID  int64
	Amount        decimal.Decimal
	Date          time.Time
	CreatedAt     time.Time
}

// NetEntry is a ledger entry with its reimbursements applied.
type NetEntry struct {
	Entry      LedgerEntry
	Reimbursed decimal.Decimal
}

// Net returns gross minus reimbursements.
func (n NetEntry) Net() decimal.Decimal {
	return n.Entry.Amount.Sub(n.Reimbursed)
}
