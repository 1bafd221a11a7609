package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileSystem(t *testing.T) *FileSystem {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "r1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r1", "metrics.csv"), []byte("step,loss\n1,0.5"), 0o644))

	fsys, err := NewFileSystem(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Close() })
	return fsys
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestFileSystem_Open(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()
	abs := filepath.Join(fsys.Dir(), "r1", "metrics.csv")

	for _, loc := range []string{"r1/metrics.csv", "./r1/metrics.csv", abs, "file://" + abs} {
		t.Run(loc, func(t *testing.T) {
			rc, err := fsys.Open(ctx, loc)
			require.NoError(t, err)
			assert.Equal(t, "step,loss\n1,0.5", readAll(t, rc))
		})
	}
}

func TestFileSystem_NotFound(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	for _, loc := range []string{"r1/missing.csv", "r1", ""} {
		t.Run(loc, func(t *testing.T) {
			_, err := fsys.Open(ctx, loc)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileSystem_RejectsEscapes(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.csv")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0o644))

	for _, loc := range []string{"../secret.csv", "r1/../../secret.csv", secret, "file://" + secret} {
		t.Run(loc, func(t *testing.T) {
			_, err := fsys.Open(ctx, loc)
			assert.ErrorIs(t, err, ErrOutsideRoot)
		})
	}
}

func TestFileSystem_RejectsSymlinkEscape(t *testing.T) {
	fsys := newTestFileSystem(t)

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.csv")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0o644))
	if err := os.Symlink(secret, filepath.Join(fsys.Dir(), "link.csv")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := fsys.Open(context.Background(), "link.csv")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
