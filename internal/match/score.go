// Package match scores confirmation events against open payment obligations.
//
// Every function here is pure: callers load the candidates, and persistence
// of the decision happens elsewhere.
package match

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/cleared-dev/rentbook/internal/id"
)

// AmountScore is 1 minus the relative difference between the event amount
// and the owed amount, clamped to [0,1].
func AmountScore(event, owed decimal.Decimal) float64 {
	if owed.IsZero() {
		if event.IsZero() {
			return 1
		}
		return 0
	}
	diff := event.Sub(owed).Abs().Div(owed.Abs())
	return clamp(1 - diff.InexactFloat64())
}

// IdentityScore compares a free-text actor against a payer. An exact match on
// the payer name or one of its aliases scores 1. Otherwise the Levenshtein
// similarity of the closest name is scaled by fuzzyCap, so string distance
// alone never scores like a known alias.
func IdentityScore(actor, payer string, aliases []string, fuzzyCap float64) float64 {
	a := id.Slug(actor)
	if a == "" {
		return 0
	}
	names := append([]string{payer}, aliases...)
	best := 0.0
	for _, n := range names {
		s := id.Slug(n)
		if s == "" {
			continue
		}
		if s == a {
			return 1
		}
		if sim := similarity(a, s); sim > best {
			best = sim
		}
	}
	return clamp(best * fuzzyCap)
}

func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return clamp(1 - float64(dist)/float64(longest))
}

// TemporalScore halves every halfLifeDays between the charge and the payment
// and never drops below floor, so late payments stay matchable.
func TemporalScore(chargedAt, at time.Time, halfLifeDays, floor float64) float64 {
	if halfLifeDays <= 0 {
		return clamp(floor)
	}
	days := math.Abs(at.Sub(chargedAt).Hours()) / 24
	return clamp(math.Max(floor, math.Pow(0.5, days/halfLifeDays)))
}

// ReferenceBonus returns bonus when note mentions trackingID.
func ReferenceBonus(note, trackingID string, bonus float64) float64 {
	if id.ContainsRef(note, trackingID) {
		return bonus
	}
	return 0
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
