package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/categories"
	"github.com/cleared-dev/rentbook/internal/config"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "rentbook-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "rentbook")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/rentbook")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runRentbook(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runRentbook(t, "init", dir, "--name", "Elm Street")
	require.NoError(t, err, out)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := initProject(t)

	expectedDirs := []string{
		"categories",
		"rules",
		"logs",
		"exports",
		"import",
		filepath.Join("import", "processed"),
		"inbox",
		filepath.Join("inbox", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	_, err := os.Stat(filepath.Join(dir, "rentbook.db"))
	assert.NoError(t, err, "database should be created")
}

func TestInit_Config(t *testing.T) {
	dir := initProject(t)

	cfg, err := config.Load(filepath.Join(dir, "rentbook.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Elm Street", cfg.Household.Name)
	assert.Equal(t, 100, cfg.Classification.AutoApprovePriority)
	assert.InDelta(t, 0.85, cfg.Matching.HighThreshold, 1e-9)
}

func TestInit_Categories(t *testing.T) {
	dir := initProject(t)

	chart, err := categories.Load(dir)
	require.NoError(t, err)
	assert.Len(t, chart.All(), len(categories.DefaultChart()))
	assert.True(t, chart.SplitEligible("electricity"))
}

func TestInit_GitRepo(t *testing.T) {
	dir := initProject(t)

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init: Initialize Elm Street")

	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = dir
	out, err = authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Rentbook <rentbook@localhost>")

	// The database stays out of git.
	files := exec.Command("git", "ls-files")
	files.Dir = dir
	out, err = files.Output()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "rentbook.db")
	assert.Contains(t, string(out), "rules/classification-rules.yaml")
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runRentbook(t, "init", t.TempDir())
	require.Error(t, err, "init without --name should fail")
}
