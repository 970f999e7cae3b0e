package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/config"
)

var testGit = config.GitConfig{AutoCommit: true, AuthorName: "Test Author", AuthorEmail: "test@example.com"}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return string(out)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(context.Background(), dir))

	_, err := os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
}

func TestIsRepo(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")

	require.NoError(t, Init(context.Background(), dir))
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
}

func TestRecorder_CommitAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(ctx, dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rentbook.yaml"), []byte("household: {}\n"), 0o644))

	hash, err := NewRecorder(dir, testGit).CommitAll(ctx, "init: new project")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.Contains(t, gitOutput(t, dir, "log", "--format=%s", "-1"), "init: new project")
	assert.Contains(t, gitOutput(t, dir, "log", "--format=%an <%ae>", "-1"), "Test Author <test@example.com>")
}

func TestRecorder_CommitPaths(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(ctx, dir))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules", "rules.yaml"), []byte("rules: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644))

	hash, err := NewRecorder(dir, testGit).CommitPaths(ctx, "rules: add rule 1", "rules/rules.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	files := gitOutput(t, dir, "show", "--name-only", "--format=", "HEAD")
	assert.Contains(t, files, "rules/rules.yaml")
	assert.NotContains(t, files, "scratch.txt")
}

func TestRecorder_NothingToCommit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(ctx, dir))
	rec := NewRecorder(dir, testGit)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	_, err := rec.CommitAll(ctx, "first")
	require.NoError(t, err)

	hash, err := rec.CommitAll(ctx, "second")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestRecorder_Disabled(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Init(ctx, dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	cfg := testGit
	cfg.AutoCommit = false
	hash, err := NewRecorder(dir, cfg).CommitAll(ctx, "skipped")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestRecorder_NotARepo(t *testing.T) {
	hash, err := NewRecorder(t.TempDir(), testGit).CommitAll(context.Background(), "skipped")
	require.NoError(t, err)
	assert.Empty(t, hash)
}
