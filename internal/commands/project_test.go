package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/auditlog"
	"github.com/cleared-dev/rentbook/internal/store"
)

func TestCloseInto_ReportsAuditFlushFailure(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "rentbook.db"))
	require.NoError(t, err)

	// A file where the project directory should be makes the audit write fail.
	root := filepath.Join(t.TempDir(), "project")
	require.NoError(t, os.WriteFile(root, nil, 0o644))

	p := &project{root: root, store: s, audit: auditlog.NewBuffer("run-1")}
	p.audit.Add("import", "commit", "1", "PGE WEB PAY")

	boom := errors.New("boom")
	run := func() (err error) {
		defer p.closeInto(&err)
		return boom
	}

	err = run()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotEqual(t, boom, err, "flush failure is joined onto the command error")
}

func TestCloseInto_NoErrors(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "rentbook.db"))
	require.NoError(t, err)

	p := &project{root: t.TempDir(), store: s, audit: auditlog.NewBuffer("run-1")}
	p.audit.Add("rules", "add", "1", "PGE -> electricity")

	run := func() (err error) {
		defer p.closeInto(&err)
		return nil
	}
	require.NoError(t, run())

	entries, err := auditlog.Read(p.root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
