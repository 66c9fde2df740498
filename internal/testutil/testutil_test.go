package testutil

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)

	// Existing directories are fine.
	require.NoError(t, EnsureDir(dir))
}

func TestSaveImage_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "blank.png")
	SaveImage(t, image.NewGray(image.Rect(0, 0, 4, 4)), path)
	assert.FileExists(t, path)
}
