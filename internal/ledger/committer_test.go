package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/categories"
	"github.com/cleared-dev/rentbook/internal/classify"
	"github.com/cleared-dev/rentbook/internal/model"
	"github.com/cleared-dev/rentbook/internal/store"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "rentbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newCommitter() *Committer {
	return NewCommitter(categories.NewService(categories.DefaultChart()))
}

func autoElectricity() classify.Result {
	return classify.Result{
		RuleID: 1, Category: "electricity", Action: model.ActionCategorize,
		Priority: 100, Confidence: dec("0.95"), Auto: true,
	}
}

func storeRaw(t *testing.T, ctx context.Context, tx *store.Tx, desc, payee, amount string) model.RawTransaction {
	t.Helper()
	raw, _, err := tx.InsertRaw(ctx, model.RawTransaction{
		PostedDate: date(2025, 1, 3), Amount: dec(amount), Description: desc, Payee: payee,
	})
	require.NoError(t, err)
	return raw
}

func TestCommit_AutoCategorize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "PGE WEB PAY", "", "-300.00")

		res, err := c.Commit(ctx, tx, raw, autoElectricity())
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, res.Outcome)
		assert.True(t, res.Entry.Amount.Equal(dec("300")))
		assert.Equal(t, "electricity", res.Entry.Category)
		assert.Equal(t, "PGE WEB PAY", res.Entry.Merchant)
		assert.Equal(t, raw.ID, res.Entry.RawTransactionID)
		assert.True(t, res.Category.SplitEligible)

		got, err := tx.GetRaw(ctx, raw.ID)
		require.NoError(t, err)
		assert.True(t, got.Processed)
		assert.Equal(t, res.Entry.ID, got.LedgerEntryID)
		return nil
	}))
}

func TestCommit_DuplicateLedgerEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		first := storeRaw(t, ctx, tx, "PGE WEB PAY", "PG&E", "-300.00")
		second := storeRaw(t, ctx, tx, "PGE WEB PAYMENT 0103", "pg&e", "-300.00")
		require.NotEqual(t, first.ID, second.ID)

		res1, err := c.Commit(ctx, tx, first, autoElectricity())
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, res1.Outcome)

		res2, err := c.Commit(ctx, tx, second, autoElectricity())
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, res2.Outcome)
		assert.Equal(t, res1.Entry.ID, res2.Entry.ID)
		assert.Equal(t, first.ID, res2.Entry.RawTransactionID)

		got, err := tx.GetRaw(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, got.Processed)
		assert.Equal(t, res1.Entry.ID, got.LedgerEntryID)
		return nil
	}))
}

func TestCommit_UnknownCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	res := autoElectricity()
	res.Category = "yacht"
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "MARINA", "", "-50.00")
		_, err := c.Commit(ctx, tx, raw, res)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "yacht"`)
}

func TestCommit_ReviewQueued(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "PGE WEB PAY", "", "-300.00")

		below := autoElectricity()
		below.Auto = false
		below.Confidence = dec("0.75")
		res, err := c.Commit(ctx, tx, raw, below)
		require.NoError(t, err)
		assert.Equal(t, OutcomeQueued, res.Outcome)

		queued, err := tx.QueuedRaw(ctx)
		require.NoError(t, err)
		require.Len(t, queued, 1)
		assert.Equal(t, "electricity", queued[0].SuggestedCategory)
		assert.True(t, queued[0].Confidence.Equal(dec("0.75")))

		entries, err := tx.LedgerEntries(ctx, model.Period{Year: 2025, Month: 1})
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	}))
}

func TestCommit_NoMatchQueued(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "COSTCO", "", "-80.00")
		res, err := c.Commit(ctx, tx, raw, classify.Result{Action: model.ActionReview})
		require.NoError(t, err)
		assert.Equal(t, OutcomeQueued, res.Outcome)

		got, err := tx.GetRaw(ctx, raw.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ActionReview, got.SuggestedAction)
		assert.False(t, got.Processed)
		return nil
	}))
}

func TestCommit_Exclude(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "ONLINE TRANSFER TO SAV", "", "-1000.00")
		res, err := c.Commit(ctx, tx, raw, classify.Result{RuleID: 2, Action: model.ActionExclude, Priority: 150, Auto: true})
		require.NoError(t, err)
		assert.Equal(t, OutcomeExcluded, res.Outcome)

		got, err := tx.GetRaw(ctx, raw.ID)
		require.NoError(t, err)
		assert.True(t, got.Excluded)
		return nil
	}))
}

func TestApprove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "PGE WEB PAY", "", "-300.00")
		require.NoError(t, tx.SetSuggestion(ctx, raw.ID, "electricity", model.ActionCategorize, 1, dec("0.75")))

		res, err := c.Approve(ctx, tx, raw.ID, "")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, res.Outcome)
		assert.Equal(t, "electricity", res.Entry.Category)

		_, err = c.Approve(ctx, tx, raw.ID, "gas")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
		assert.ErrorIs(t, c.Exclude(ctx, tx, raw.ID), ErrAlreadyProcessed)
		return nil
	}))
}

func TestApprove_OverridesSuggestionAndNeedsCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "HOME DEPOT", "", "-42.10")

		_, err := c.Approve(ctx, tx, raw.ID, "")
		assert.Error(t, err)

		res, err := c.Approve(ctx, tx, raw.ID, "Repairs")
		require.NoError(t, err)
		assert.Equal(t, "repairs", res.Entry.Category)
		return nil
	}))
}

func TestExclude(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := newCommitter()

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		raw := storeRaw(t, ctx, tx, "VENMO CASHOUT", "", "250.00")
		require.NoError(t, c.Exclude(ctx, tx, raw.ID))

		queued, err := tx.QueuedRaw(ctx)
		require.NoError(t, err)
		assert.Empty(t, queued)

		_, err = c.Approve(ctx, tx, 999, "gas")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))
}
