package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/match"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

// ForceMatch links an event to an obligation chosen by a person, bypassing
// scoring. The event must be unmatched and the obligation still open.
func (m *Matcher) ForceMatch(ctx context.Context, eventID, obligationID int64) (Result, error) {
	var res Result
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.Matched() {
			return fmt.Errorf("event %d is linked to obligation %d: %w", ev.ID, ev.ObligationID, ErrAlreadyMatched)
		}
		o, err := tx.GetObligation(ctx, obligationID)
		if err != nil {
			return err
		}
		if !o.Status.Open() {
			return fmt.Errorf("obligation %d is %s: %w", o.ID, o.Status, ErrNotOpen)
		}

		score := match.Score(ev, o, m.policy).Score
		res, err = m.settle(ctx, tx, ev, o.ID, score, model.MatchedByManual)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	logger.FromContext(ctx).Info().
		Int64("event_id", eventID).
		Str("tracking_id", res.Obligation.TrackingID).
		Msg("force-matched payment")
	return res, nil
}

// Forego waives an open obligation.
func (m *Matcher) Forego(ctx context.Context, obligationID int64) (model.PaymentObligation, error) {
	return m.transition(ctx, obligationID, model.ObligationForegone)
}

// MarkSent records that the payment request was delivered.
func (m *Matcher) MarkSent(ctx context.Context, obligationID int64) (model.PaymentObligation, error) {
	return m.transition(ctx, obligationID, model.ObligationSent)
}

func (m *Matcher) transition(ctx context.Context, obligationID int64, to model.ObligationStatus) (model.PaymentObligation, error) {
	var out model.PaymentObligation
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		o, err := tx.GetObligation(ctx, obligationID)
		if err != nil {
			return err
		}
		if err := o.Transition(to); err != nil {
			return err
		}
		ok, err := tx.TransitionObligation(ctx, obligationID, to, time.Time{})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("obligation %d: %w", obligationID, ErrNotOpen)
		}
		out, err = tx.GetObligation(ctx, obligationID)
		return err
	})
	if err != nil {
		return model.PaymentObligation{}, err
	}
	logger.FromContext(ctx).Info().Str("tracking_id", out.TrackingID).Str("status", string(to)).Msg("obligation updated")
	return out, nil
}
