package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertWorkTree asserts every file exists under root with the given content
func AssertWorkTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, content, string(data), name)
	}
}

// AssertNoWorkTree asserts none of files exist under root
func AssertNoWorkTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name := range files {
		assert.NoFileExists(t, filepath.Join(root, filepath.FromSlash(name)))
	}
}
