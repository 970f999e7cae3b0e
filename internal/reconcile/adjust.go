package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

// ErrDeferred is returned when a paid obligation's bill is not in the ledger.
// The obligation stays unadjusted until ReconcileDeferred finds the entry.
var ErrDeferred = errors.New("adjustment deferred")

// Adjust records the reimbursement for a paid obligation against the ledger
// entry for its category and period. Repeating it is a no-op.
func Adjust(ctx context.Context, tx *store.Tx, o model.PaymentObligation) (model.UtilityAdjustment, error) {
	if o.Status != model.ObligationPaid {
		return model.UtilityAdjustment{}, fmt.Errorf("obligation %d is %s, not paid", o.ID, o.Status)
	}

	entry, err := tx.FindLedgerEntry(ctx, o.Category, o.Period)
	if errors.Is(err, store.ErrNotFound) {
		logger.FromContext(ctx).Warn().
			Str("tracking_id", o.TrackingID).
			Str("category", o.Category).
			Str("period", o.Period.String()).
			Msg("no ledger entry for paid obligation, deferring adjustment")
		return model.UtilityAdjustment{}, fmt.Errorf("obligation %s: %w", o.TrackingID, ErrDeferred)
	}
	if err != nil {
		return model.UtilityAdjustment{}, err
	}

	date := o.PaidAt
	if date.IsZero() {
		date = time.Now()
	}
	adj, inserted, err := tx.InsertAdjustment(ctx, model.UtilityAdjustment{
		LedgerEntryID: entry.ID,
		ObligationID:  o.ID,
		Amount:        o.OwedAmount,
		Date:          date.UTC(),
	})
	if err != nil {
		return model.UtilityAdjustment{}, err
	}
	if inserted {
		logger.FromContext(ctx).Info().
			Str("tracking_id", o.TrackingID).
			Int64("entry_id", entry.ID).
			Str("amount", adj.Amount.StringFixed(2)).
			Msg("recorded utility adjustment")
	}
	return adj, nil
}

// DeferredSummary reports a ReconcileDeferred run.
type DeferredSummary struct {
	Adjusted int
	Deferred int
	Failed   int
}

// ReconcileDeferred retries every paid obligation that has no adjustment.
// Each obligation is its own unit of work.
func (m *Matcher) ReconcileDeferred(ctx context.Context) (DeferredSummary, error) {
	var pending []model.PaymentObligation
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		pending, err = tx.UnadjustedPaid(ctx)
		return err
	})
	if err != nil {
		return DeferredSummary{}, err
	}

	var sum DeferredSummary
	for _, o := range pending {
		err := m.store.WithTx(ctx, func(tx *store.Tx) error {
			_, err := Adjust(ctx, tx, o)
			return err
		})
		switch {
		case err == nil:
			sum.Adjusted++
		case errors.Is(err, ErrDeferred):
			sum.Deferred++
		default:
			sum.Failed++
			logger.FromContext(ctx).Error().Err(err).Str("tracking_id", o.TrackingID).Msg("adjustment failed")
		}
	}
	return sum, nil
}
