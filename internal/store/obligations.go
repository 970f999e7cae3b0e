package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/model"
)

const obligationColumns = `id, tracking_id, category, period, payer, owed_amount, total_amount,
	charged_at, status, paid_at, created_at`

// InsertObligation stores a pending obligation keyed by its tracking id.
// A repeated tracking id is a no-op that returns the existing row with
// inserted=false.
func (t *Tx) InsertObligation(ctx context.Context, o model.PaymentObligation) (model.PaymentObligation, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO payment_obligations
			(tracking_id, category, period, payer, owed_amount, total_amount, charged_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tracking_id) DO NOTHING
		RETURNING id`,
		o.TrackingID,
		o.Category,
		o.Period.String(),
		o.Payer,
		o.OwedAmount.StringFixed(2),
		o.TotalAmount.StringFixed(2),
		o.ChargedAt.Format(model.DateFormat),
		string(model.ObligationPending),
		t.timestamp(),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing, err := t.ObligationByTrackingID(ctx, o.TrackingID)
		if err != nil {
			return model.PaymentObligation{}, false, err
		}
		return existing, false, nil
	case err != nil:
		return model.PaymentObligation{}, false, fmt.Errorf("inserting obligation %s: %w", o.TrackingID, err)
	}
	stored, err := t.GetObligation(ctx, id)
	if err != nil {
		return model.PaymentObligation{}, false, err
	}
	return stored, true, nil
}

// GetObligation loads an obligation by id.
func (t *Tx) GetObligation(ctx context.Context, id int64) (model.PaymentObligation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM payment_obligations WHERE id = ?`, id)
	o, err := scanObligation(row)
	if err != nil {
		return model.PaymentObligation{}, fmt.Errorf("loading obligation %d: %w", id, err)
	}
	return o, nil
}

// ObligationByTrackingID loads an obligation by tracking id.
func (t *Tx) ObligationByTrackingID(ctx context.Context, trackingID string) (model.PaymentObligation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM payment_obligations WHERE tracking_id = ?`, trackingID)
	o, err := scanObligation(row)
	if err != nil {
		return model.PaymentObligation{}, fmt.Errorf("loading obligation %s: %w", trackingID, err)
	}
	return o, nil
}

// Obligations lists obligations in any of the given statuses, or all when none are given.
func (t *Tx) Obligations(ctx context.Context, statuses ...model.ObligationStatus) ([]model.PaymentObligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM payment_obligations`
	var args []any
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, s := range statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		query += ` WHERE status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY charged_at, id`
	return t.queryObligations(ctx, query, args...)
}

// OpenObligations lists obligations that can still be matched.
func (t *Tx) OpenObligations(ctx context.Context) ([]model.PaymentObligation, error) {
	return t.Obligations(ctx, model.OpenStatuses()...)
}

// UnadjustedPaid lists paid obligations that have no utility adjustment yet.
func (t *Tx) UnadjustedPaid(ctx context.Context) ([]model.PaymentObligation, error) {
	return t.queryObligations(ctx, `SELECT `+obligationColumns+` FROM payment_obligations o
		WHERE o.status = 'paid'
		AND NOT EXISTS (SELECT 1 FROM utility_adjustments a WHERE a.obligation_id = o.id)
		ORDER BY o.id`)
}

func (t *Tx) queryObligations(ctx context.Context, query string, args ...any) ([]model.PaymentObligation, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying obligations: %w", err)
	}
	defer rows.Close()

	var out []model.PaymentObligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning obligation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// TransitionObligation moves an obligation to status to, but only while its
// current status is one that may legally make that move. It reports false
// when another writer got there first.
func (t *Tx) TransitionObligation(ctx context.Context, id int64, to model.ObligationStatus, at time.Time) (bool, error) {
	var from []any
	for _, s := range []model.ObligationStatus{model.ObligationPending, model.ObligationSent} {
		if model.CanTransition(s, to) {
			from = append(from, string(s))
		}
	}
	if len(from) == 0 {
		return false, fmt.Errorf("no status can move to %s", to)
	}

	paidAt := ""
	if to == model.ObligationPaid {
		paidAt = formatTimestamp(at)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args := append([]any{string(to), paidAt, id}, from...)
	res, err := t.tx.ExecContext(ctx, `
		UPDATE payment_obligations SET status = ?, paid_at = ?
		WHERE id = ? AND status IN (`+marks+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("moving obligation %d to %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

func scanObligation(s scanner) (model.PaymentObligation, error) {
	var (
		o                            model.PaymentObligation
		period, owed, total, charged string
		status, paid, created        string
	)
	err := s.Scan(&o.ID, &o.TrackingID, &o.Category, &period, &o.Payer, &owed, &total,
		&charged, &status, &paid, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	if o.Period, err = model.ParsePeriod(period); err != nil {
		return o, err
	}
	if o.OwedAmount, err = decimal.NewFromString(owed); err != nil {
		return o, fmt.Errorf("parsing owed_amount %q: %w", owed, err)
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return o, fmt.Errorf("parsing total_amount %q: %w", total, err)
	}
	if o.ChargedAt, err = time.Parse(model.DateFormat, charged); err != nil {
		return o, fmt.Errorf("parsing charged_at %q: %w", charged, err)
	}
	if o.PaidAt, err = parseTimestamp(paid); err != nil {
		return o, fmt.Errorf("parsing paid_at %q: %w", paid, err)
	}
	if o.CreatedAt, err = parseTimestamp(created); err != nil {
		return o, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	o.Status = model.ObligationStatus(status)
	return o, nil
}
