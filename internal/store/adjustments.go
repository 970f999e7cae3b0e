package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/model"
)

const adjustmentColumns = `id, ledger_entry_id, obligation_id, amount, date, created_at`

// InsertAdjustment records a reimbursement against a ledger entry. At most
// one adjustment exists per obligation; a repeat returns the stored row with
// inserted=false.
func (t *Tx) InsertAdjustment(ctx context.Context, a model.UtilityAdjustment) (model.UtilityAdjustment, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO utility_adjustments (ledger_entry_id, obligation_id, amount, date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (obligation_id) DO NOTHING
		RETURNING id`,
		a.LedgerEntryID,
		a.ObligationID,
		a.Amount.StringFixed(2),
		a.Date.Format(model.DateFormat),
		t.timestamp(),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing, err := t.AdjustmentForObligation(ctx, a.ObligationID)
		if err != nil {
			return model.UtilityAdjustment{}, false, err
		}
		return existing, false, nil
	case err != nil:
		return model.UtilityAdjustment{}, false, fmt.Errorf("inserting adjustment for obligation %d: %w", a.ObligationID, err)
	}
	row := t.tx.QueryRowContext(ctx, `SELECT `+adjustmentColumns+` FROM utility_adjustments WHERE id = ?`, id)
	stored, err := scanAdjustment(row)
	if err != nil {
		return model.UtilityAdjustment{}, false, fmt.Errorf("loading adjustment %d: %w", id, err)
	}
	return stored, true, nil
}

// AdjustmentForObligation loads the adjustment recorded for an obligation.
func (t *Tx) AdjustmentForObligation(ctx context.Context, obligationID int64) (model.UtilityAdjustment, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+adjustmentColumns+` FROM utility_adjustments WHERE obligation_id = ?`, obligationID)
	a, err := scanAdjustment(row)
	if err != nil {
		return model.UtilityAdjustment{}, fmt.Errorf("loading adjustment for obligation %d: %w", obligationID, err)
	}
	return a, nil
}

func scanAdjustment(s scanner) (model.UtilityAdjustment, error) {
	var (
		a                     model.UtilityAdjustment
		amount, date, created string
	)
	err := s.Scan(&a.ID, &a.LedgerEntryID, &a.ObligationID, &amount, &date, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return a, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if a.Date, err = time.Parse(model.DateFormat, date); err != nil {
		return a, fmt.Errorf("parsing date %q: %w", date, err)
	}
	if a.CreatedAt, err = parseTimestamp(created); err != nil {
		return a, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return a, nil
}
