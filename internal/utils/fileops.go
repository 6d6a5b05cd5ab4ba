package utils

import (
	"os"
	"path/filepath"
)

// EnsureDir ensures a directory exists, creating it if necessary
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// SwapDir replaces final with temp in two steps: the old directory is
// removed, then the staged one is renamed into its place. Between the
// two steps final does not exist.
func SwapDir(temp, final string) error {
	if err := os.RemoveAll(final); err != nil {
		return err
	}
	return os.Rename(temp, final)
}

// RemoveMatching removes every regular file in dir whose base name
// matches the glob pattern. Missing directories are not an error.
func RemoveMatching(dir, pattern string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
