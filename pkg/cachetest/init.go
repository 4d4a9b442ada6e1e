package cachetest

import (
	"testing"

	fixtures "github.com/aquasecurity/bolt-fixtures"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/ossaudit/pkg/cache"
)

// InitStore creates a cache DB in a temp dir and loads the given
// fixture files into it, returning the cache directory.
func InitStore(t *testing.T, fixtureFiles []string) string {
	t.Helper()

	cacheDir := t.TempDir()

	loader, err := fixtures.New(cache.Path(cacheDir), fixtureFiles)
	require.NoError(t, err)
	require.NoError(t, loader.Load())
	require.NoError(t, loader.Close())

	return cacheDir
}
