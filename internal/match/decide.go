package match

import (
	"math"
	"sort"
	"time"

	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/model"
)

// Kind is the outcome of a match decision.
type Kind string

const (
	KindAuto      Kind = "auto"
	KindReview    Kind = "review"
	KindUnmatched Kind = "unmatched"
)

// scorePrecision is the number of decimal places kept when ranking scores.
const scorePrecision = 1e9

// Policy holds the weights, thresholds and alias table used to score events.
type Policy struct {
	AmountWeight     float64
	IdentityWeight   float64
	TemporalWeight   float64
	ReferenceBonus   float64
	HighThreshold    float64
	LowThreshold     float64
	HalfLifeDays     float64
	TemporalFloor    float64
	IdentityFuzzyCap float64
	ReviewCandidates int

	// Aliases maps a payer name to the other names it shows up under.
	Aliases map[string][]string
}

// PolicyFromConfig builds a Policy from the matching config and the parties.
func PolicyFromConfig(m config.MatchingConfig, parties []config.Party) Policy {
	aliases := make(map[string][]string, len(parties))
	for _, p := range parties {
		aliases[p.Name] = p.Aliases
	}
	return Policy{
		AmountWeight:     m.Weights.Amount,
		IdentityWeight:   m.Weights.Identity,
		TemporalWeight:   m.Weights.Temporal,
		ReferenceBonus:   m.ReferenceBonus,
		HighThreshold:    m.HighThreshold,
		LowThreshold:     m.LowThreshold,
		HalfLifeDays:     m.HalfLifeDays,
		TemporalFloor:    m.TemporalFloor,
		IdentityFuzzyCap: m.IdentityFuzzyCap,
		ReviewCandidates: m.ReviewCandidates,
		Aliases:          aliases,
	}
}

// Breakdown shows the parts of a score.
type Breakdown struct {
	Amount    float64
	Identity  float64
	Temporal  float64
	Reference float64
}

// Candidate is one scored obligation.
type Candidate struct {
	Obligation model.PaymentObligation
	Score      float64
	Breakdown  Breakdown
}

// Decision is the result of scoring an event against open obligations.
// Best is set for KindAuto. Candidates holds the top-N for KindReview.
type Decision struct {
	Kind       Kind
	Best       Candidate
	Candidates []Candidate
}

// Score rates one obligation for an event.
func Score(event model.ConfirmationEvent, o model.PaymentObligation, p Policy) Candidate {
	b := Breakdown{
		Amount:    AmountScore(event.Amount, o.OwedAmount),
		Identity:  IdentityScore(event.Actor, o.Payer, p.Aliases[o.Payer], p.IdentityFuzzyCap),
		Temporal:  TemporalScore(o.ChargedAt, event.Timestamp, p.HalfLifeDays, p.TemporalFloor),
		Reference: ReferenceBonus(event.Note, o.TrackingID, p.ReferenceBonus),
	}
	score := p.AmountWeight*b.Amount + p.IdentityWeight*b.Identity + p.TemporalWeight*b.Temporal + b.Reference
	return Candidate{Obligation: o, Score: score, Breakdown: b}
}

// Decide scores every open obligation and applies the thresholds: above the
// high threshold auto-match, between the thresholds surface the top
// candidates for review, below the low threshold leave unmatched. Equal top
// scores go to the closest charge date, then the lowest id.
func Decide(event model.ConfirmationEvent, open []model.PaymentObligation, p Policy) Decision {
	var cands []Candidate
	for _, o := range open {
		if !o.Status.Open() {
			continue
		}
		cands = append(cands, Score(event, o, p))
	}
	if len(cands) == 0 {
		return Decision{Kind: KindUnmatched}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if ra, rb := rank(a.Score), rank(b.Score); ra != rb {
			return ra > rb
		}
		da, db := distance(a.Obligation.ChargedAt, event.Timestamp), distance(b.Obligation.ChargedAt, event.Timestamp)
		if da != db {
			return da < db
		}
		return a.Obligation.ID < b.Obligation.ID
	})

	top := cands[0]
	switch {
	case top.Score > p.HighThreshold:
		return Decision{Kind: KindAuto, Best: top}
	case top.Score >= p.LowThreshold:
		n := p.ReviewCandidates
		if n <= 0 || n > len(cands) {
			n = len(cands)
		}
		return Decision{Kind: KindReview, Candidates: cands[:n]}
	default:
		return Decision{Kind: KindUnmatched, Best: top}
	}
}

// IDs returns the obligation ids of the candidates in order.
func IDs(cands []Candidate) []int64 {
	out := make([]int64, len(cands))
	for i, c := range cands {
		out[i] = c.Obligation.ID
	}
	return out
}

// rank rounds a score so float noise from summing weights does not break ties.
func rank(score float64) float64 {
	return math.Round(score*scorePrecision) / scorePrecision
}

func distance(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
