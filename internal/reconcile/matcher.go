// Package reconcile applies match decisions to stored obligations and nets
// reimbursements back against the bills they came from.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/match"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

var (
	// ErrAlreadyMatched is returned when an event is already linked to an obligation.
	ErrAlreadyMatched = errors.New("event already matched")
	// ErrNotOpen is returned when an obligation can no longer be matched.
	ErrNotOpen = errors.New("obligation not open")
)

// Outcome is what processing did with an event.
type Outcome string

const (
	OutcomeMatched        Outcome = "matched"
	OutcomeAlreadyMatched Outcome = "already_matched"
	OutcomeReview         Outcome = "review"
	OutcomeUnmatched      Outcome = "unmatched"
)

// Result describes one processed event.
type Result struct {
	Outcome    Outcome
	Event      model.ConfirmationEvent
	Obligation model.PaymentObligation // set when matched
	Candidates []int64                 // set for review
	Score      float64

	// Deferred is true when the obligation was paid but its bill is not in
	// the ledger yet, so no adjustment could be written.
	Deferred bool
}

// Matcher reconciles confirmation events against open obligations.
type Matcher struct {
	store  *store.Store
	policy match.Policy
}

// NewMatcher creates a Matcher.
func NewMatcher(s *store.Store, policy match.Policy) *Matcher {
	return &Matcher{store: s, policy: policy}
}

// Process handles one event in a single transaction: store it, score it
// against the obligations open at that moment, and on a confident match mark
// the obligation paid, link the event and write the adjustment together.
// Processing an event that is already matched changes nothing.
func (m *Matcher) Process(ctx context.Context, event model.ConfirmationEvent) (Result, error) {
	var res Result
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		res, err = m.process(ctx, tx, event)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (m *Matcher) process(ctx context.Context, tx *store.Tx, event model.ConfirmationEvent) (Result, error) {
	log := logger.FromContext(ctx)

	stored, _, err := tx.UpsertEvent(ctx, event)
	if err != nil {
		return Result{}, err
	}
	if stored.Matched() {
		log.Debug().Str("message_id", stored.MessageID).Int64("obligation_id", stored.ObligationID).Msg("event already matched")
		return Result{Outcome: OutcomeAlreadyMatched, Event: stored, Score: stored.Score}, nil
	}

	open, err := tx.OpenObligations(ctx)
	if err != nil {
		return Result{}, err
	}
	d := match.Decide(stored, open, m.policy)

	switch d.Kind {
	case match.KindAuto:
		best := d.Best
		paid, err := m.settle(ctx, tx, stored, best.Obligation.ID, best.Score, model.MatchedByAuto)
		if errors.Is(err, ErrNotOpen) {
			log.Warn().
				Str("message_id", stored.MessageID).
				Int64("obligation_id", best.Obligation.ID).
				Msg("obligation closed by another writer, leaving event unmatched")
			if err := tx.SetEventOutcome(ctx, stored.ID, model.MatchUnmatched, best.Score, nil); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeUnmatched, Event: stored, Score: best.Score}, nil
		}
		if err != nil {
			return Result{}, err
		}
		log.Info().
			Str("message_id", stored.MessageID).
			Str("tracking_id", paid.Obligation.TrackingID).
			Float64("score", best.Score).
			Msg("matched payment")
		return paid, nil

	case match.KindReview:
		ids := match.IDs(d.Candidates)
		score := d.Candidates[0].Score
		if err := tx.SetEventOutcome(ctx, stored.ID, model.MatchReview, score, ids); err != nil {
			return Result{}, err
		}
		log.Info().Str("message_id", stored.MessageID).Ints64("candidates", ids).Msg("event needs review")
		return Result{Outcome: OutcomeReview, Event: stored, Candidates: ids, Score: score}, nil

	default:
		if err := tx.SetEventOutcome(ctx, stored.ID, model.MatchUnmatched, d.Best.Score, nil); err != nil {
			return Result{}, err
		}
		log.Info().Str("message_id", stored.MessageID).Msg("event unmatched")
		return Result{Outcome: OutcomeUnmatched, Event: stored, Score: d.Best.Score}, nil
	}
}

// settle marks the obligation paid, links the event and writes the
// adjustment. It returns ErrNotOpen when the status guard fails.
func (m *Matcher) settle(ctx context.Context, tx *store.Tx, event model.ConfirmationEvent, obligationID int64, score float64, by model.MatchedBy) (Result, error) {
	ok, err := tx.TransitionObligation(ctx, obligationID, model.ObligationPaid, event.Timestamp)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("obligation %d: %w", obligationID, ErrNotOpen)
	}
	linked, err := tx.LinkEvent(ctx, event.ID, obligationID, score, by)
	if err != nil {
		return Result{}, err
	}
	if !linked {
		return Result{}, fmt.Errorf("event %d: %w", event.ID, ErrAlreadyMatched)
	}

	o, err := tx.GetObligation(ctx, obligationID)
	if err != nil {
		return Result{}, err
	}
	ev, err := tx.GetEvent(ctx, event.ID)
	if err != nil {
		return Result{}, err
	}

	res := Result{Outcome: OutcomeMatched, Event: ev, Obligation: o, Score: score}
	if _, err := Adjust(ctx, tx, o); err != nil {
		if !errors.Is(err, ErrDeferred) {
			return Result{}, err
		}
		res.Deferred = true
	}
	return res, nil
}
