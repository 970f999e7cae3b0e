package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cleared-dev/rentbook/internal/model"
)

// ExportPath returns exports/YYYY/MM/ledger.csv under root.
func ExportPath(root string, period model.Period) string {
	return filepath.Join(root, "exports", fmt.Sprintf("%04d", period.Year), fmt.Sprintf("%02d", period.Month), "ledger.csv")
}

// Export writes a period's net entries to its ledger.csv, replacing any
// previous export. It returns the written path.
func Export(root string, period model.Period, entries []model.NetEntry) (string, error) {
	path := ExportPath(root, period)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := WriteEntries(f, entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing ledger export: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replacing %s: %w", path, err)
	}
	return path, nil
}

// ReadExport reads a period's exported ledger. A missing export yields no entries.
func ReadExport(root string, period model.Period) ([]model.NetEntry, error) {
	path := ExportPath(root, period)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger export %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger export %s: %w", path, err)
	}
	return entries, nil
}
