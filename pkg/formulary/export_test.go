package formulary_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/formulary"
)

func TestTable_DocumentLoadsBack(t *testing.T) {
	set, err := formulary.Default()
	require.NoError(t, err)
	orig, err := set.Table("")
	require.NoError(t, err)

	doc, err := orig.Document()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(doc), "---\nlocale: "+orig.Locale+"\n"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, strings.ToLower(orig.Locale)+".md"), doc, 0o644))

	tables, err := formulary.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	got := tables[0]

	assert.Equal(t, orig.Locale, got.Locale)
	assert.Equal(t, orig.ComplicatedBelowEGFR, got.ComplicatedBelowEGFR)
	assert.Equal(t, orig.SelectionOrder, got.SelectionOrder)
	assert.Equal(t, orig.Agents(), got.Agents())
	assert.Equal(t, orig.Interactions(), got.Interactions())
	for _, a := range orig.Agents() {
		want, _ := orig.Lookup(a)
		have, ok := got.Lookup(a)
		require.True(t, ok, a)
		assert.Equal(t, want.Regimen(), have.Regimen())
		assert.Equal(t, want.MinEGFR, have.MinEGFR)
	}
}
