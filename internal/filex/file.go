// Package filex manages the scratch directory used for snapshot files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// ScratchDir creates a fresh directory under parent and returns it along
// with a function that removes it and everything inside. The cleanup is
// safe to call more than once.
func ScratchDir(parent, pattern string) (string, func(), error) {
	base, err := EnsureDir(parent)
	if err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("mkdir temp in %s: %w", base, err)
	}

	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// Entries returns the names in dir. It is used to check that no scratch
// files outlive an operation.
func Entries(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(des))
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names, nil
}
