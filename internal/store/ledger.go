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

const ledgerColumns = `id, date, amount, category, merchant, raw_transaction_id, created_at`

// InsertLedgerEntry stores a ledger entry. When an entry with the same natural
// key exists it returns that entry with inserted=false.
func (t *Tx) InsertLedgerEntry(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries
			(date, amount, category, merchant, merchant_key, raw_transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, amount, merchant_key, category) DO NOTHING
		RETURNING id`,
		e.Date.Format(model.DateFormat),
		e.Amount.StringFixed(2),
		e.Category,
		e.Merchant,
		model.NormalizeText(e.Merchant),
		e.RawTransactionID,
		t.timestamp(),
	).Scan(&id)
	inserted := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		inserted = false
		err = t.tx.QueryRowContext(ctx, `
			SELECT id FROM ledger_entries
			WHERE date = ? AND amount = ? AND merchant_key = ? AND category = ?`,
			e.Date.Format(model.DateFormat),
			e.Amount.StringFixed(2),
			model.NormalizeText(e.Merchant),
			e.Category,
		).Scan(&id)
		if err != nil {
			return model.LedgerEntry{}, false, fmt.Errorf("loading colliding ledger entry: %w", err)
		}
	case err != nil:
		return model.LedgerEntry{}, false, fmt.Errorf("inserting ledger entry: %w", err)
	}
	stored, err := t.GetLedgerEntry(ctx, id)
	if err != nil {
		return model.LedgerEntry{}, false, err
	}
	return stored, inserted, nil
}

// GetLedgerEntry loads a ledger entry by id.
func (t *Tx) GetLedgerEntry(ctx context.Context, id int64) (model.LedgerEntry, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanLedger(row)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("loading ledger entry %d: %w", id, err)
	}
	return e, nil
}

// FindLedgerEntry returns the entry for a category within a period. When
// several exist the lowest id wins.
func (t *Tx) FindLedgerEntry(ctx context.Context, category string, period model.Period) (model.LedgerEntry, error) {
	from, to := periodBounds(period)
	row := t.tx.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE category = ? AND date >= ? AND date < ?
		ORDER BY id LIMIT 1`, category, from, to)
	e, err := scanLedger(row)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("finding %s ledger entry for %s: %w", category, period, err)
	}
	return e, nil
}

// LedgerEntries lists a period's entries by date.
func (t *Tx) LedgerEntries(ctx context.Context, period model.Period) ([]model.LedgerEntry, error) {
	from, to := periodBounds(period)
	rows, err := t.tx.QueryContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE date >= ? AND date < ?
		ORDER BY date, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NetEntries returns a period's ledger entries with reimbursements applied:
// net = gross - sum(adjustments).
func (t *Tx) NetEntries(ctx context.Context, period model.Period) ([]model.NetEntry, error) {
	entries, err := t.LedgerEntries(ctx, period)
	if err != nil {
		return nil, err
	}

	from, to := periodBounds(period)
	rows, err := t.tx.QueryContext(ctx, `
		SELECT a.ledger_entry_id, a.amount
		FROM utility_adjustments a
		JOIN ledger_entries l ON l.id = a.ledger_entry_id
		WHERE l.date >= ? AND l.date < ?`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying adjustments: %w", err)
	}
	defer rows.Close()

	reimbursed := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			entryID int64
			amount  string
		)
		if err := rows.Scan(&entryID, &amount); err != nil {
			return nil, fmt.Errorf("scanning adjustment: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing adjustment amount %q: %w", amount, err)
		}
		reimbursed[entryID] = reimbursed[entryID].Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.NetEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.NetEntry{Entry: e, Reimbursed: reimbursed[e.ID]})
	}
	return out, nil
}

func scanLedger(s scanner) (model.LedgerEntry, error) {
	var (
		e                     model.LedgerEntry
		date, amount, created string
	)
	err := s.Scan(&e.ID, &date, &amount, &e.Category, &e.Merchant, &e.RawTransactionID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if e.Date, err = time.Parse(model.DateFormat, date); err != nil {
		return e, fmt.Errorf("parsing date %q: %w", date, err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return e, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return e, nil
}

func periodBounds(p model.Period) (string, string) {
	start := p.Start()
	return start.Format(model.DateFormat), start.AddDate(0, 1, 0).Format(model.DateFormat)
}
