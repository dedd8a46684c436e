package bsicatalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalogParsesAndIsNonEmpty(t *testing.T) {
	c := Builtin()
	require.NotEmpty(t, c.Bausteine)
	require.Contains(t, c.BausteinIDs(), "ISMS.1")
}

func TestMussSetContainsEveryListedAnforderung(t *testing.T) {
	c := Builtin()
	set := c.MussSet()
	require.True(t, set["ISMS.1.A1"])
	require.False(t, set["NOT.A.REAL.ANFORDERUNG"])
}

func TestLoadWithoutOverridePathReturnsBuiltin(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Same(t, Builtin(), c)
}

func TestLoadOverrideReplacesCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bausteine:\n  - id: TEST.1\n    name: Test Baustein\n    muss_anforderungen:\n      - TEST.1.A1\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"TEST.1"}, c.BausteinIDs())
}

func TestLoadOverrideRejectsEmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bausteine: []\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOverrideMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
