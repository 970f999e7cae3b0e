package ledger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/model"
)

func sampleEntries() []model.NetEntry {
	return []model.NetEntry{
		{
			Entry: model.LedgerEntry{
				ID: 1, Date: date(2025, 1, 3), Amount: dec("300.00"),
				Category: "electricity", Merchant: "PGE WEB PAY",
			},
			Reimbursed: dec("200.00"),
		},
		{
			Entry: model.LedgerEntry{
				ID: 2, Date: date(2025, 1, 9), Amount: dec("42.10"),
				Category: "repairs", Merchant: "HOME DEPOT, #0412",
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	entries := sampleEntries()

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, entries))
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))
	assert.Contains(t, buf.String(), "1,2025-01-03,electricity,PGE WEB PAY,300.00,200.00,100.00")

	got, err := ReadEntries(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range entries {
		assert.Equal(t, entries[i].Entry.ID, got[i].Entry.ID)
		assert.True(t, entries[i].Entry.Date.Equal(got[i].Entry.Date))
		assert.Equal(t, entries[i].Entry.Merchant, got[i].Entry.Merchant)
		assert.True(t, entries[i].Entry.Amount.Equal(got[i].Entry.Amount))
		assert.True(t, entries[i].Reimbursed.Equal(got[i].Reimbursed))
		assert.True(t, entries[i].Net().Equal(got[i].Net()))
	}
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		errMsg string
	}{
		{"short", []string{"1", "2025-01-03"}, "expected 7 fields"},
		{"bad id", []string{"x", "2025-01-03", "gas", "PGE", "1.00", "0.00", "1.00"}, "parsing entry_id"},
		{"bad date", []string{"1", "01/03/2025", "gas", "PGE", "1.00", "0.00", "1.00"}, "parsing date"},
		{"bad amount", []string{"1", "2025-01-03", "gas", "PGE", "one", "0.00", "1.00"}, "parsing amount"},
		{"net mismatch", []string{"1", "2025-01-03", "gas", "PGE", "10.00", "4.00", "5.00"}, "does not equal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEntry(tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestReadEntries_Empty(t *testing.T) {
	got, err := ReadEntries(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExport(t *testing.T) {
	root := t.TempDir()
	jan := model.Period{Year: 2025, Month: 1}

	path, err := Export(root, jan, sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, ExportPath(root, jan), path)
	assert.True(t, strings.HasSuffix(path, "exports/2025/01/ledger.csv"))

	// Re-export replaces the file.
	_, err = Export(root, jan, sampleEntries()[:1])
	require.NoError(t, err)

	got, err := ReadExport(root, jan)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "electricity", got[0].Entry.Category)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadExport_Missing(t *testing.T) {
	got, err := ReadExport(t.TempDir(), model.Period{Year: 2024, Month: 12})
	require.NoError(t, err)
	assert.Nil(t, got)
}
