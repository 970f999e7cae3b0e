package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/model"
)

// GenericParser reads CSVs with a named header. date, amount and description
// are required; payee and external_id are optional. Columns may come in any
// order.
type GenericParser struct{}

var genericDateFormats = []string{model.DateFormat, "01/02/2006", "1/2/2006"}

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic CSV and returns raw transactions.
func (p *GenericParser) Parse(r io.Reader) ([]model.RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading generic CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	cols, err := columnMap(records[0])
	if err != nil {
		return nil, err
	}

	var txns []model.RawTransaction
	for i, rec := range records[1:] {
		txn, err := parseGenericRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func columnMap(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "amount", "description"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return cols, nil
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseGenericRow(rec []string, cols map[string]int) (model.RawTransaction, error) {
	rawDate := field(rec, cols, "date")
	date, err := parseDate(rawDate)
	if err != nil {
		return model.RawTransaction{}, err
	}
	rawAmount := strings.ReplaceAll(strings.TrimPrefix(field(rec, cols, "amount"), "$"), ",", "")
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("parsing amount %q: %w", rawAmount, err)
	}
	desc := field(rec, cols, "description")
	if desc == "" {
		return model.RawTransaction{}, fmt.Errorf("empty description")
	}

	return model.RawTransaction{
		PostedDate:  date,
		Amount:      amount,
		Description: desc,
		Payee:       field(rec, cols, "payee"),
		ExternalID:  field(rec, cols, "external_id"),
		Source:      "generic",
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range genericDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: want YYYY-MM-DD or MM/DD/YYYY", s)
}
