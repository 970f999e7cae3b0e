// Package ledger turns classified transactions into ledger entries and
// exports monthly ledgers.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/rentbook/internal/classify"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

// ErrAlreadyProcessed is returned when a review action targets a transaction
// that already left the queue.
var ErrAlreadyProcessed = errors.New("transaction already processed")

// CategoryChart looks up categories by name.
type CategoryChart interface {
	Get(name string) (model.Category, bool)
}

// Outcome is what happened to a raw transaction.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeExcluded  Outcome = "excluded"
	OutcomeQueued    Outcome = "queued"
)

// Result reports a commit outcome. Entry is set for committed and duplicate
// outcomes; for a duplicate it is the canonical entry that already existed.
type Result struct {
	Outcome  Outcome
	Entry    model.LedgerEntry
	Category model.Category
}

// Committer writes ledger entries inside the caller's transaction.
type Committer struct {
	chart CategoryChart
}

// NewCommitter creates a Committer.
func NewCommitter(chart CategoryChart) *Committer {
	return &Committer{chart: chart}
}

// Commit applies a classifier decision to a stored raw transaction.
func (c *Committer) Commit(ctx context.Context, tx *store.Tx, raw model.RawTransaction, res classify.Result) (Result, error) {
	switch {
	case res.Action == model.ActionCategorize && res.Auto:
		return c.commit(ctx, tx, raw, res.Category)
	case res.Action == model.ActionExclude && res.Auto:
		if err := tx.MarkExcluded(ctx, raw.ID); err != nil {
			return Result{}, err
		}
		logger.FromContext(ctx).Debug().Int64("raw_id", raw.ID).Int("rule_id", res.RuleID).Msg("excluded")
		return Result{Outcome: OutcomeExcluded}, nil
	default:
		if err := tx.SetSuggestion(ctx, raw.ID, res.Category, res.Action, res.RuleID, res.Confidence); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeQueued}, nil
	}
}

// Approve commits a queued transaction to category, or to its stored
// suggestion when category is empty.
func (c *Committer) Approve(ctx context.Context, tx *store.Tx, rawID int64, category string) (Result, error) {
	raw, err := tx.GetRaw(ctx, rawID)
	if err != nil {
		return Result{}, err
	}
	if raw.Processed {
		return Result{}, fmt.Errorf("raw transaction %d: %w", rawID, ErrAlreadyProcessed)
	}
	if category == "" {
		category = raw.SuggestedCategory
	}
	if category == "" {
		return Result{}, fmt.Errorf("raw transaction %d: no category given and no suggestion stored", rawID)
	}
	return c.commit(ctx, tx, raw, category)
}

// Exclude removes a queued transaction from the ledger's scope.
func (c *Committer) Exclude(ctx context.Context, tx *store.Tx, rawID int64) error {
	raw, err := tx.GetRaw(ctx, rawID)
	if err != nil {
		return err
	}
	if raw.Processed {
		return fmt.Errorf("raw transaction %d: %w", rawID, ErrAlreadyProcessed)
	}
	return tx.MarkExcluded(ctx, rawID)
}

func (c *Committer) commit(ctx context.Context, tx *store.Tx, raw model.RawTransaction, category string) (Result, error) {
	cat, ok := c.chart.Get(category)
	if !ok {
		return Result{}, fmt.Errorf("raw transaction %d: unknown category %q", raw.ID, category)
	}

	entry, inserted, err := tx.InsertLedgerEntry(ctx, model.LedgerEntry{
		Date:             raw.PostedDate,
		Amount:           raw.Amount.Abs(),
		Category:         cat.Name,
		Merchant:         raw.Merchant(),
		RawTransactionID: raw.ID,
	})
	if err != nil {
		return Result{}, err
	}
	if err := tx.MarkProcessed(ctx, raw.ID, entry.ID); err != nil {
		return Result{}, err
	}

	log := logger.FromContext(ctx)
	if !inserted {
		log.Debug().
			Int64("raw_id", raw.ID).
			Int64("entry_id", entry.ID).
			Msg("ledger entry already exists")
		return Result{Outcome: OutcomeDuplicate, Entry: entry, Category: cat}, nil
	}
	log.Info().
		Int64("entry_id", entry.ID).
		Str("category", cat.Name).
		Str("amount", entry.Amount.StringFixed(2)).
		Msg("committed ledger entry")
	return Result{Outcome: OutcomeCommitted, Entry: entry, Category: cat}, nil
}
