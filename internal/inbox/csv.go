// Package inbox reads payment confirmation feeds.
package inbox

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/importer"
	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
)

// Dir is the confirmation drop folder inside a project.
const Dir = "inbox"

// Header is the expected first row of a confirmation CSV.
const Header = "message_id,amount,actor,timestamp,note"

const numFields = 5

// CSVSource reads confirmations from <root>/inbox/*.csv.
type CSVSource struct {
	dir   string
	files []string
}

// NewCSVSource creates a source over the project's inbox folder.
func NewCSVSource(root string) *CSVSource {
	return &CSVSource{dir: filepath.Join(root, Dir)}
}

// Name identifies the source in logs.
func (s *CSVSource) Name() string { return "csv" }

// Fetch parses every CSV in the inbox. Files are left in place until Archive.
func (s *CSVSource) Fetch(ctx context.Context) ([]model.ConfirmationEvent, error) {
	log := logger.FromContext(ctx)

	files, err := importer.ScanDir(s.dir)
	if err != nil {
		return nil, err
	}

	s.files = s.files[:0]
	var events []model.ConfirmationEvent
	for _, f := range files {
		evs, err := readFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		log.Debug().Str("file", f.Name).Int("events", len(evs)).Msg("read confirmation file")
		events = append(events, evs...)
		s.files = append(s.files, f.Name)
	}
	return events, nil
}

// Archive moves the files read by the last Fetch into inbox/processed/.
func (s *CSVSource) Archive() error {
	var errs []error
	for _, name := range s.files {
		if err := importer.MoveToProcessed(s.dir, name); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

func readFile(path string) ([]model.ConfirmationEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads confirmation rows in the Header layout.
func Parse(r io.Reader) ([]model.ConfirmationEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading confirmation CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var events []model.ConfirmationEvent
	for i, rec := range records[1:] {
		ev, err := UnmarshalEvent(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// UnmarshalEvent converts a CSV row into an event.
func UnmarshalEvent(row []string) (model.ConfirmationEvent, error) {
	if len(row) != numFields {
		return model.ConfirmationEvent{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}
	amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(row[1]), "$"))
	if err != nil {
		return model.ConfirmationEvent{}, fmt.Errorf("parsing amount %q: %w", row[1], err)
	}
	ts, err := parseTimestamp(strings.TrimSpace(row[3]))
	if err != nil {
		return model.ConfirmationEvent{}, err
	}
	return model.ConfirmationEvent{
		MessageID: strings.TrimSpace(row[0]),
		Amount:    amount,
		Actor:     strings.TrimSpace(row[2]),
		Timestamp: ts,
		Note:      row[4],
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(model.DateFormat, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q: want RFC3339 or YYYY-MM-DD", s)
}
