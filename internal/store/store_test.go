package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Get(KeyColor)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(KeyColor, "black"))
	v, ok, err := m.Get(KeyColor)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "black", v)
}

func TestFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "prefs.toml")

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set(KeyColor, "white"))
	require.NoError(t, f.Set(KeySettings, "%7B%7D"))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(KeyColor)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "white", v)

	v, _, _ = reopened.Get(KeySettings)
	assert.Equal(t, "%7B%7D", v)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("color = [unterminated"), 0644))

	_, err := OpenFile(path)
	assert.Error(t, err)
}
