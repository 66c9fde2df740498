package testutil

import (
	"os"
)

// EnsureDir creates a directory and its parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}
