package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus records where a confirmation event ended up.
type MatchStatus string

const (
	MatchUnmatched MatchStatus = "unmatched"
	MatchReview    MatchStatus = "review"
	MatchMatched   MatchStatus = "matched"
)

// MatchedBy records who linked an event to its obligation.
type MatchedBy string

const (
	MatchedByAuto   MatchedBy = "auto"
	MatchedByManual MatchedBy = "manual"
)

// ConfirmationEvent is a parsed external payment signal.
type ConfirmationEvent struct {
	ID        int64
	MessageID string // external message id, or a content hash when the feed has none
	Amount    decimal.Decimal
	Actor     string // free text, not a stable identity
	Timestamp time.Time
	Note      string

	ObligationID int64 // zero until matched; permanent once set
	Status       MatchStatus
	Score        float64
	Candidates   []int64 // top candidates surfaced for manual review
	MatchedBy    MatchedBy
	CreatedAt    time.Time
}

// Matched reports whether the event is linked to an obligation.
func (e ConfirmationEvent) Matched() bool {
	return e.ObligationID != 0
}

// ContentID derives a stable id from the event payload for feeds without message ids.
func (e ConfirmationEvent) ContentID() string {
	h := sha256.New()
	h.Write([]byte(e.Amount.StringFixed(2)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeText(e.Actor)))
	h.Write([]byte{0})
	h.Write([]byte(e.Timestamp.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(e.Note))
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:32]
}
