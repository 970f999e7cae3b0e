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

const rawColumns = `id, posted_date, amount, description, payee, external_id, source,
	processed, excluded, suggested_category, suggested_action, rule_id, confidence,
	ledger_entry_id, created_at`

// InsertRaw stores a raw transaction. When a row with the same natural key
// already exists it returns that row with inserted=false.
func (t *Tx) InsertRaw(ctx context.Context, raw model.RawTransaction) (model.RawTransaction, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO raw_transactions
			(posted_date, amount, description, desc_key, payee, external_id, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (posted_date, amount, desc_key) DO NOTHING
		RETURNING id`,
		raw.PostedDate.Format(model.DateFormat),
		raw.Amount.StringFixed(2),
		raw.Description,
		model.NormalizeText(raw.Description),
		raw.Payee,
		raw.ExternalID,
		raw.Source,
		t.timestamp(),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing, err := t.rawByNaturalKey(ctx, raw)
		if err != nil {
			return model.RawTransaction{}, false, err
		}
		return existing, false, nil
	case err != nil:
		return model.RawTransaction{}, false, fmt.Errorf("inserting raw transaction: %w", err)
	}
	stored, err := t.GetRaw(ctx, id)
	if err != nil {
		return model.RawTransaction{}, false, err
	}
	return stored, true, nil
}

func (t *Tx) rawByNaturalKey(ctx context.Context, raw model.RawTransaction) (model.RawTransaction, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+rawColumns+` FROM raw_transactions
		WHERE posted_date = ? AND amount = ? AND desc_key = ?`,
		raw.PostedDate.Format(model.DateFormat),
		raw.Amount.StringFixed(2),
		model.NormalizeText(raw.Description),
	)
	got, err := scanRaw(row)
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("loading raw transaction %s: %w", raw.NaturalKey(), err)
	}
	return got, nil
}

// GetRaw loads a raw transaction by id.
func (t *Tx) GetRaw(ctx context.Context, id int64) (model.RawTransaction, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+rawColumns+` FROM raw_transactions WHERE id = ?`, id)
	raw, err := scanRaw(row)
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("loading raw transaction %d: %w", id, err)
	}
	return raw, nil
}

// QueuedRaw lists raw transactions awaiting review: not processed and not excluded.
func (t *Tx) QueuedRaw(ctx context.Context) ([]model.RawTransaction, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+rawColumns+` FROM raw_transactions
		WHERE processed = 0 AND excluded = 0
		ORDER BY posted_date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying queued transactions: %w", err)
	}
	defer rows.Close()

	var out []model.RawTransaction
	for rows.Next() {
		raw, err := scanRaw(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning raw transaction: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// SetSuggestion records the classifier's latest suggestion on a queued row.
func (t *Tx) SetSuggestion(ctx context.Context, id int64, category string, action model.Action, ruleID int, confidence decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE raw_transactions
		SET suggested_category = ?, suggested_action = ?, rule_id = ?, confidence = ?
		WHERE id = ?`,
		category, string(action), ruleID, confidence.String(), id)
	if err != nil {
		return fmt.Errorf("storing suggestion for raw transaction %d: %w", id, err)
	}
	return expectOne(res, id)
}

// MarkProcessed records that a raw row resulted in (or collided with) a ledger entry.
func (t *Tx) MarkProcessed(ctx context.Context, id, ledgerEntryID int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE raw_transactions SET processed = 1, ledger_entry_id = ? WHERE id = ?`,
		nullID(ledgerEntryID), id)
	if err != nil {
		return fmt.Errorf("marking raw transaction %d processed: %w", id, err)
	}
	return expectOne(res, id)
}

// MarkExcluded records that a raw row is a non-expense and never reaches the ledger.
func (t *Tx) MarkExcluded(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE raw_transactions SET processed = 1, excluded = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking raw transaction %d excluded: %w", id, err)
	}
	return expectOne(res, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRaw(s scanner) (model.RawTransaction, error) {
	var (
		raw                           model.RawTransaction
		posted, amount, conf, created string
		action                        string
		processed, excluded           int
		ledgerID                      sql.NullInt64
	)
	err := s.Scan(&raw.ID, &posted, &amount, &raw.Description, &raw.Payee, &raw.ExternalID, &raw.Source,
		&processed, &excluded, &raw.SuggestedCategory, &action, &raw.RuleID, &conf,
		&ledgerID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return raw, ErrNotFound
	}
	if err != nil {
		return raw, err
	}
	if raw.PostedDate, err = time.Parse(model.DateFormat, posted); err != nil {
		return raw, fmt.Errorf("parsing posted_date %q: %w", posted, err)
	}
	if raw.Amount, err = decimal.NewFromString(amount); err != nil {
		return raw, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if raw.Confidence, err = decimal.NewFromString(conf); err != nil {
		return raw, fmt.Errorf("parsing confidence %q: %w", conf, err)
	}
	if raw.CreatedAt, err = parseTimestamp(created); err != nil {
		return raw, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	raw.Processed = processed != 0
	raw.Excluded = excluded != 0
	raw.SuggestedAction = model.Action(action)
	raw.LedgerEntryID = ledgerID.Int64
	return raw, nil
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("row %d: %w", id, ErrNotFound)
	}
	return nil
}
