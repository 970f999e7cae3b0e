package categories

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/rentbook/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cats := []model.Category{
		{Name: "electricity", Kind: model.CategoryKindExpense, SplitEligible: true, Description: "Electric, utility"},
		{Name: "rent", Kind: model.CategoryKindIncome},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCategories(&buf, cats))

	got, err := ReadCategories(&buf)
	require.NoError(t, err)
	assert.Equal(t, cats, got)
}

func TestUnmarshalCategory_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
		errMsg string
	}{
		{"short", []string{"gas", "expense"}, "expected 4 fields"},
		{"empty name", []string{" ", "expense", "true", ""}, "empty category name"},
		{"bad kind", []string{"gas", "asset", "true", ""}, "unknown kind"},
		{"bad flag", []string{"gas", "expense", "maybe", ""}, "parsing split_eligible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCategory(tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestReadCategories_BlankSplitFlag(t *testing.T) {
	got, err := ReadCategories(strings.NewReader("name,kind,split_eligible,description\nrepairs,expense,,\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].SplitEligible)
}

func TestService_Lookup(t *testing.T) {
	svc := NewService(DefaultChart())

	c, ok := svc.Get("Electricity")
	require.True(t, ok)
	assert.Equal(t, model.CategoryKindExpense, c.Kind)

	assert.True(t, svc.Exists("rent"))
	assert.False(t, svc.Exists("groceries"))

	assert.True(t, svc.SplitEligible("electricity"))
	assert.False(t, svc.SplitEligible("mortgage"))
	assert.False(t, svc.SplitEligible("groceries"))
}

func TestService_ByKind(t *testing.T) {
	svc := NewService(DefaultChart())

	income := svc.ByKind(model.CategoryKindIncome)
	require.Len(t, income, 1)
	assert.Equal(t, "rent", income[0].Name)

	for _, c := range svc.ByKind(model.CategoryKindExpense) {
		assert.Equal(t, model.CategoryKindExpense, c.Kind)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(DefaultChart())
	require.NoError(t, svc.Save(dir))

	_, err := os.Stat(filepath.Join(dir, "categories", "categories.csv"))
	require.NoError(t, err)

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, svc.All(), loaded.All())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(DefaultChart()))

	err := Validate([]model.Category{
		{Name: "property_tax", Kind: model.CategoryKindExpense},
		{Name: "property tax", Kind: model.CategoryKindExpense},
		{Name: "--", Kind: model.CategoryKindExpense},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"property tax": same tracking name as "property_tax"`)
	assert.Contains(t, err.Error(), `"--": name needs at least one letter or digit`)
}

func TestLoad_RejectsCollidingNames(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, RelPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("name,kind,split_eligible,description\ngas,expense,true,\nGAS!,expense,true,\n"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same tracking name")
}
