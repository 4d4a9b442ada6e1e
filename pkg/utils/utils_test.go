package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.False(t, ok)
}
