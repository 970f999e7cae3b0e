package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ObligationStatus is the lifecycle state of a payment obligation.
type ObligationStatus string

const (
	ObligationPending  ObligationStatus = "pending"
	ObligationSent     ObligationStatus = "sent"
	ObligationPaid     ObligationStatus = "paid"
	ObligationForegone ObligationStatus = "foregone"
)

var obligationTransitions = map[ObligationStatus][]ObligationStatus{
	ObligationPending: {ObligationSent, ObligationPaid, ObligationForegone},
	ObligationSent:    {ObligationPaid, ObligationForegone},
}

// Open reports whether an obligation in this status can still be matched.
func (s ObligationStatus) Open() bool {
	return s == ObligationPending || s == ObligationSent
}

// Terminal reports whether no further transition is possible.
func (s ObligationStatus) Terminal() bool {
	return s == ObligationPaid || s == ObligationForegone
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to ObligationStatus) bool {
	for _, s := range obligationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OpenStatuses lists the statuses the matcher treats as open.
func OpenStatuses() []ObligationStatus {
	return []ObligationStatus{ObligationPending, ObligationSent}
}

// TransitionError is returned for an illegal status change.
type TransitionError struct {
	ObligationID int64
	From         ObligationStatus
	To           ObligationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("obligation %d: cannot move from %s to %s", e.ObligationID, e.From, e.To)
}

// PaymentObligation is one party's share of a split bill.
type PaymentObligation struct {
	ID          int64
	TrackingID  string
	Category    string
	Period      Period
	Payer       string
	OwedAmount  decimal.Decimal
	TotalAmount decimal.Decimal
	ChargedAt   time.Time // date of the bill the share was split from
	Status      ObligationStatus
	PaidAt      time.Time // zero unless paid
	CreatedAt   time.Time
}

// Transition validates and applies a status change in memory.
func (o *PaymentObligation) Transition(to ObligationStatus) error {
	if !CanTransition(o.Status, to) {
		return &TransitionError{ObligationID: o.ID, From: o.Status, To: to}
	}
	o.Status = to
	return nil
}
