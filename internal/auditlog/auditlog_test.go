package auditlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		RunID:     "2b1f0c56-5a1e-4c39-9d0e-8f6f2d1a7e11",
		Component: "pipeline",
		Action:    "committed",
		Subject:   "raw:12",
		Details:   "electricity 300.00 rule 3",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].Component)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Component = "matcher"
	e2.Action = "matched"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pipeline", entries[0].Component)
	assert.Equal(t, "matcher", entries[1].Component)
}

func TestAppend_NothingToWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))

	_, err := os.Stat(filepath.Join(dir, RelPath))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RelPath), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestMarshalUnmarshal(t *testing.T) {
	e := testEntry()
	row := MarshalEntry(e)
	assert.Len(t, row, 6)
	assert.Equal(t, "2025-01-15T10:30:00Z", row[0])

	got, err := UnmarshalEntry(row)
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, e.RunID, got.RunID)
	assert.Equal(t, e.Subject, got.Subject)
	assert.Equal(t, e.Details, got.Details)
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 6 fields")
}

func TestBuffer(t *testing.T) {
	dir := t.TempDir()
	b := NewBuffer("run-1")
	b.now = func() time.Time { return testTime }

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add("pipeline", "queued", "raw:1", "")
		}()
	}
	wg.Wait()
	assert.Len(t, b.Entries(), 10)

	require.NoError(t, b.Flush(dir))
	assert.Empty(t, b.Entries())

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, "run-1", entries[0].RunID)
}

func TestBuffer_Nil(t *testing.T) {
	var b *Buffer
	b.Add("pipeline", "queued", "raw:1", "")
	assert.Nil(t, b.Entries())
	assert.Empty(t, b.RunID())
	assert.NoError(t, b.Flush(t.TempDir()))
}
