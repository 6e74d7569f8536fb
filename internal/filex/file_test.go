package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("tmp")
	require.NoError(t, err)

	// t.TempDir may sit behind a symlink (macOS /var -> /private/var).
	want, err := filepath.EvalSymlinks(filepath.Join(tmp, "tmp"))
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	require.Equal(t, want, gotReal)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_AbsoluteAndIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, dir, first)

	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "tmp")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o660))

	_, err := EnsureDir(p)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestScratchDir_CleanupRemovesEverything(t *testing.T) {
	parent := t.TempDir()

	dir, cleanup, err := ScratchDir(parent, "export-*")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stocks.db"), []byte("x"), 0o600))

	names, err := Entries(parent)
	require.NoError(t, err)
	require.Len(t, names, 1)

	cleanup()
	cleanup()

	names, err = Entries(parent)
	require.NoError(t, err)
	require.Empty(t, names)
}
