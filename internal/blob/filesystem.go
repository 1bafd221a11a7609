package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem serves artifact paths from beneath a root directory.
// Relative paths resolve against the root; absolute paths must lie inside it.
type FileSystem struct {
	dir  string
	root *os.Root
}

// NewFileSystem opens dir as the artifact root.
func NewFileSystem(dir string) (*FileSystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root %s: %w", dir, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open artifact root %s: %w", abs, err)
	}
	return &FileSystem{dir: abs, root: root}, nil
}

// Dir returns the absolute root directory.
func (f *FileSystem) Dir() string {
	return f.dir
}

// Open implements Opener.
func (f *FileSystem) Open(_ context.Context, location string) (io.ReadCloser, error) {
	rel, err := f.relative(location)
	if err != nil {
		return nil, err
	}

	file, err := f.root.Open(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
		}
		if strings.Contains(err.Error(), "escapes from parent") {
			return nil, fmt.Errorf("%s: %w", location, ErrOutsideRoot)
		}
		return nil, fmt.Errorf("open %s: %w", location, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat %s: %w", location, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("%s is a directory: %w", location, ErrNotFound)
	}
	return file, nil
}

// Close releases the root directory handle.
func (f *FileSystem) Close() error {
	return f.root.Close()
}

func (f *FileSystem) relative(location string) (string, error) {
	p := strings.TrimPrefix(location, "file://")
	if p == "" {
		return "", fmt.Errorf("empty path: %w", ErrNotFound)
	}

	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(f.dir, filepath.Clean(p))
		if err != nil {
			return "", fmt.Errorf("%s: %w", location, ErrOutsideRoot)
		}
		p = rel
	}

	p = filepath.Clean(p)
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", location, ErrOutsideRoot)
	}
	return p, nil
}
