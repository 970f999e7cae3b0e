package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/id"
	"github.com/cleared-dev/rentbook/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

// ChaseHeader is the first line of a Chase checking export.
const ChaseHeader = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #"

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns raw transactions.
func (p *ChaseParser) Parse(r io.Reader) ([]model.RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var txns []model.RawTransaction
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseChaseRow(rec []string) (model.RawTransaction, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}
	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	desc := rec[chaseColDesc]
	return model.RawTransaction{
		PostedDate:  date,
		Amount:      amount,
		Description: desc,
		ExternalID:  makeChaseRef(date, desc),
		Source:      "chase",
	}, nil
}

// makeChaseRef creates a reference like chase_20250103_PGEWEBPAY.
func makeChaseRef(date time.Time, desc string) string {
	prefix := []rune(id.Slug(desc))
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), string(prefix))
}
