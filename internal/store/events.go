package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/model"
)

const eventColumns = `id, message_id, amount, actor, timestamp, note, obligation_id,
	status, score, candidates, matched_by, created_at`

// UpsertEvent stores a confirmation event keyed by message id. A repeated
// message id returns the stored event with inserted=false.
func (t *Tx) UpsertEvent(ctx context.Context, e model.ConfirmationEvent) (model.ConfirmationEvent, bool, error) {
	if e.MessageID == "" {
		e.MessageID = e.ContentID()
	}
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO confirmation_events (message_id, amount, actor, timestamp, note, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id`,
		e.MessageID,
		e.Amount.StringFixed(2),
		e.Actor,
		formatTimestamp(e.Timestamp),
		e.Note,
		string(model.MatchUnmatched),
		t.timestamp(),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing, err := t.EventByMessageID(ctx, e.MessageID)
		if err != nil {
			return model.ConfirmationEvent{}, false, err
		}
		return existing, false, nil
	case err != nil:
		return model.ConfirmationEvent{}, false, fmt.Errorf("inserting event %s: %w", e.MessageID, err)
	}
	stored, err := t.GetEvent(ctx, id)
	if err != nil {
		return model.ConfirmationEvent{}, false, err
	}
	return stored, true, nil
}

// GetEvent loads an event by id.
func (t *Tx) GetEvent(ctx context.Context, id int64) (model.ConfirmationEvent, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM confirmation_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		return model.ConfirmationEvent{}, fmt.Errorf("loading event %d: %w", id, err)
	}
	return e, nil
}

// EventByMessageID loads an event by its message id.
func (t *Tx) EventByMessageID(ctx context.Context, messageID string) (model.ConfirmationEvent, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM confirmation_events WHERE message_id = ?`, messageID)
	e, err := scanEvent(row)
	if err != nil {
		return model.ConfirmationEvent{}, fmt.Errorf("loading event %s: %w", messageID, err)
	}
	return e, nil
}

// Events lists events in any of the given statuses, or all when none are given.
func (t *Tx) Events(ctx context.Context, statuses ...model.MatchStatus) ([]model.ConfirmationEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM confirmation_events`
	var args []any
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, s := range statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		query += ` WHERE status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY timestamp, id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []model.ConfirmationEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LinkEvent attaches an unmatched event to an obligation. It reports false
// when the event is already linked; a link is never overwritten.
func (t *Tx) LinkEvent(ctx context.Context, eventID, obligationID int64, score float64, by model.MatchedBy) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE confirmation_events
		SET obligation_id = ?, status = 'matched', score = ?, candidates = '', matched_by = ?
		WHERE id = ? AND obligation_id IS NULL`,
		obligationID, score, string(by), eventID)
	if err != nil {
		return false, fmt.Errorf("linking event %d to obligation %d: %w", eventID, obligationID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

// SetEventOutcome records a non-match outcome (review or unmatched) for an
// event that is not linked yet.
func (t *Tx) SetEventOutcome(ctx context.Context, eventID int64, status model.MatchStatus, score float64, candidates []int64) error {
	if status == model.MatchMatched {
		return fmt.Errorf("event %d: use LinkEvent to match", eventID)
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE confirmation_events SET status = ?, score = ?, candidates = ?
		WHERE id = ? AND obligation_id IS NULL`,
		string(status), score, formatIDs(candidates), eventID)
	if err != nil {
		return fmt.Errorf("recording outcome for event %d: %w", eventID, err)
	}
	return nil
}

func scanEvent(s scanner) (model.ConfirmationEvent, error) {
	var (
		e                             model.ConfirmationEvent
		amount, ts, status, cands, by string
		created                       string
		obligationID                  sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.MessageID, &amount, &e.Actor, &ts, &e.Note, &obligationID,
		&status, &e.Score, &cands, &by, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if e.Timestamp, err = parseTimestamp(ts); err != nil {
		return e, fmt.Errorf("parsing timestamp %q: %w", ts, err)
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return e, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	if e.Candidates, err = parseIDs(cands); err != nil {
		return e, fmt.Errorf("parsing candidates %q: %w", cands, err)
	}
	e.ObligationID = obligationID.Int64
	e.Status = model.MatchStatus(status)
	e.MatchedBy = model.MatchedBy(by)
	return e, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func parseIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
