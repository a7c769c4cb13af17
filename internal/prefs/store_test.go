package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the common Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("a", "1"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, s.Set("a", "2"))
	v, _, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, s.Delete("a"))
	_, ok, err = s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete("never-set"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)
	f, err := OpenFile(path)
	require.NoError(t, err)
	exerciseStore(t, f)

	require.NoError(t, f.Set("profiles", `[{"name":"10x"}]`))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get("profiles")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"name":"10x"}]`, v)
	assert.Equal(t, path, reopened.Path())
}

func TestFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestPreferences(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	exerciseStore(t, NewPreferences(app.Preferences()))
}

func TestSQL(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQL_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, prefsFile, filepath.Base(DefaultPath()))
	assert.Equal(t, "histo-analyzer", filepath.Base(filepath.Dir(DefaultPath())))
}
