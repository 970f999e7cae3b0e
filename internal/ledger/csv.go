package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/rentbook/internal/model"
)

// Header is the CSV header for an exported ledger.csv.
const Header = "entry_id,date,category,merchant,amount,reimbursed,net"

const (
	numFields     = 7
	colEntryID    = 0
	colDate       = 1
	colCategory   = 2
	colMerchant   = 3
	colAmount     = 4
	colReimbursed = 5
	colNet        = 6
)

// ReadEntries reads all rows from a ledger.csv reader.
func ReadEntries(r io.Reader) ([]model.NetEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []model.NetEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries to a ledger.csv writer (including header).
func WriteEntries(w io.Writer, entries []model.NetEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts a NetEntry to a CSV row.
func MarshalEntry(e model.NetEntry) []string {
	row := make([]string, numFields)
	row[colEntryID] = strconv.FormatInt(e.Entry.ID, 10)
	row[colDate] = e.Entry.Date.Format(model.DateFormat)
	row[colCategory] = e.Entry.Category
	row[colMerchant] = e.Entry.Merchant
	row[colAmount] = e.Entry.Amount.StringFixed(2)
	row[colReimbursed] = e.Reimbursed.StringFixed(2)
	row[colNet] = e.Net().StringFixed(2)
	return row
}

// UnmarshalEntry converts a CSV row to a NetEntry. The net column must agree
// with amount minus reimbursed.
func UnmarshalEntry(record []string) (model.NetEntry, error) {
	if len(record) != numFields {
		return model.NetEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	entryID, err := strconv.ParseInt(record[colEntryID], 10, 64)
	if err != nil {
		return model.NetEntry{}, fmt.Errorf("parsing entry_id %q: %w", record[colEntryID], err)
	}
	date, err := time.Parse(model.DateFormat, record[colDate])
	if err != nil {
		return model.NetEntry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.NetEntry{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	reimbursed, err := decimal.NewFromString(record[colReimbursed])
	if err != nil {
		return model.NetEntry{}, fmt.Errorf("parsing reimbursed %q: %w", record[colReimbursed], err)
	}
	net, err := decimal.NewFromString(record[colNet])
	if err != nil {
		return model.NetEntry{}, fmt.Errorf("parsing net %q: %w", record[colNet], err)
	}

	e := model.NetEntry{
		Entry: model.LedgerEntry{
			ID:       entryID,
			Date:     date,
			Category: record[colCategory],
			Merchant: record[colMerchant],
			Amount:   amount,
		},
		Reimbursed: reimbursed,
	}
	if !e.Net().Equal(net) {
		return model.NetEntry{}, fmt.Errorf("net %s does not equal amount %s minus reimbursed %s",
			net.StringFixed(2), amount.StringFixed(2), reimbursed.StringFixed(2))
	}
	return e, nil
}
