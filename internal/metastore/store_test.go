package metastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/semcore/internal/builtins"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

var lang = names.NewFqName("lang")

func openStore(t *testing.T, path, key string) *Store {
	t.Helper()
	s, err := Open(path, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsBadPaths(t *testing.T) {
	_, err := Open("  ", "lib")
	require.Error(t, err)

	_, err = Open(t.TempDir(), "lib")
	require.Error(t, err)
}

func TestStoreMatchesInMemoryLibrary(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "meta", "store.db"), "")
	assert.Equal(t, "default", s.Key())
	require.NoError(t, s.Import(builtins.Source, builtins.Envelopes()))

	lib := builtins.NewLibrary()
	assert.Equal(t, lib.ClassNames(lang), s.ClassNames(lang))
	assert.Equal(t, lib.Packages(), s.Packages())
	assert.Len(t, s.PackageParts(lang), len(lib.PackageParts(lang)))

	d, ok := s.FindClassData(typesystem.IntID)
	require.True(t, ok)
	assert.Equal(t, builtins.Source, d.Source)
	assert.Equal(t, typesystem.IntID.String(), d.Envelope.Name)
	assert.True(t, d.Envelope.IsCompatible())

	again, ok := s.FindClassData(typesystem.IntID)
	require.True(t, ok)
	assert.Same(t, d, again)

	_, ok = s.FindClassData(names.ParseClassID("lang/Missing"))
	assert.False(t, ok)
}

func TestReimportReplacesSource(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "store.db"), "lib")
	require.NoError(t, s.Import(builtins.Source, builtins.Envelopes()))
	require.NoError(t, s.Import(builtins.Source, builtins.Envelopes()))

	assert.Len(t, s.PackageParts(lang), 1)
	sources, err := s.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{builtins.Source}, sources)

	require.NoError(t, s.Remove(builtins.Source))
	_, ok := s.FindClassData(typesystem.IntID)
	assert.False(t, ok)
	assert.Empty(t, s.ClassNames(lang))
}

func TestLibrariesAreSeparatedByKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	a := openStore(t, path, "a")
	require.NoError(t, a.Import(builtins.Source, builtins.Envelopes()))

	b := openStore(t, path, "b")
	_, ok := b.FindClassData(typesystem.AnyID)
	assert.False(t, ok)
	assert.Empty(t, b.Packages())
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path, "lib")
	require.NoError(t, err)
	require.NoError(t, s.Import(builtins.Source, builtins.Envelopes()))
	require.NoError(t, s.Close())

	reopened := openStore(t, path, "lib")
	lib, err := reopened.Library()
	require.NoError(t, err)
	assert.Equal(t, builtins.NewLibrary().ClassNames(lang), lib.ClassNames(lang))
	_, ok := lib.FindClassData(typesystem.SuspendFunctionID(3))
	assert.True(t, ok)
}

func TestImportRejectsUnknownKind(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "store.db"), "lib")
	err := s.Import("bad.smd", []*metadata.Envelope{{Name: "x"}})
	require.Error(t, err)
	assert.Empty(t, s.Packages())
}
