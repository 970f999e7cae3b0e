package split

import (
	"context"
	"fmt"
	"time"

	"github.com/cleared-dev/rentbook/internal/config"
	"github.com/cleared-dev/rentbook/internal/id"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

// SplitChecker reports whether a category's bills are shared.
type SplitChecker interface {
	SplitEligible(name string) bool
}

// Result lists the obligations for one bill. Created counts the ones this
// call inserted; the rest already existed. Conflicts counts existing
// obligations that belong to a different bill in the same category and month.
type Result struct {
	Obligations []model.PaymentObligation
	Created     int
	Conflicts   int
}

// Generator creates obligations for committed split-eligible entries.
type Generator struct {
	parties []config.Party
	chart   SplitChecker
}

// NewGenerator creates a Generator over the configured parties.
func NewGenerator(parties []config.Party, chart SplitChecker) *Generator {
	return &Generator{parties: parties, chart: chart}
}

// Generate splits entry across the parties and stores one pending obligation
// per paying party. Running it again for the same entry is a no-op.
//
// Obligations are keyed by (category, month, payer), so a second bill in a
// month that was already split creates nothing. That case is logged at warn
// level and counted in Result.Conflicts.
func (g *Generator) Generate(ctx context.Context, tx *store.Tx, entry model.LedgerEntry) (Result, error) {
	log := logger.FromContext(ctx)

	if !g.chart.SplitEligible(entry.Category) {
		return Result{}, nil
	}
	if !entry.Amount.IsPositive() {
		log.Warn().
			Int64("entry_id", entry.ID).
			Str("amount", entry.Amount.StringFixed(2)).
			Msg("not splitting non-positive bill")
		return Result{}, nil
	}
	if len(g.parties) == 0 {
		return Result{}, fmt.Errorf("no parties configured")
	}

	shares := make([]int, len(g.parties))
	for i, p := range g.parties {
		shares[i] = p.Share
	}
	amounts, err := Allocate(entry.Amount, shares)
	if err != nil {
		return Result{}, fmt.Errorf("splitting entry %d: %w", entry.ID, err)
	}

	period := entry.Period()
	var res Result
	for i, p := range g.parties {
		if p.Owner || amounts[i].IsZero() {
			continue
		}
		o, inserted, err := tx.InsertObligation(ctx, model.PaymentObligation{
			TrackingID:  id.FormatTrackingID(entry.Category, period, p.Name),
			Category:    entry.Category,
			Period:      period,
			Payer:       p.Name,
			OwedAmount:  amounts[i],
			TotalAmount: entry.Amount,
			ChargedAt:   entry.Date,
		})
		if err != nil {
			return Result{}, err
		}
		if inserted {
			res.Created++
			log.Info().
				Str("tracking_id", o.TrackingID).
				Str("payer", o.Payer).
				Str("owed", o.OwedAmount.StringFixed(2)).
				Msg("created obligation")
		} else if sameBill(o, entry) {
			log.Debug().Str("tracking_id", o.TrackingID).Msg("obligation already exists")
		} else {
			res.Conflicts++
			log.Warn().
				Int64("entry_id", entry.ID).
				Str("tracking_id", o.TrackingID).
				Str("existing_total", o.TotalAmount.StringFixed(2)).
				Str("entry_total", entry.Amount.StringFixed(2)).
				Str("existing_charged", o.ChargedAt.Format(time.DateOnly)).
				Str("entry_charged", entry.Date.Format(time.DateOnly)).
				Msg("period already split for another bill, not splitting")
		}
		res.Obligations = append(res.Obligations, o)
	}
	return res, nil
}

func sameBill(o model.PaymentObligation, entry model.LedgerEntry) bool {
	return o.TotalAmount.Equal(entry.Amount) &&
		o.ChargedAt.Format(time.DateOnly) == entry.Date.Format(time.DateOnly)
}
