// Package blob opens artifact contents by location: plain or file:// paths
// under a local root, and s3://bucket/key objects.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when the location has no content.
	ErrNotFound = errors.New("artifact file not found")

	// ErrOutsideRoot is returned for paths that resolve outside the root.
	ErrOutsideRoot = errors.New("path escapes artifact root")

	// ErrUnsupported is returned for locations no backend serves.
	ErrUnsupported = errors.New("unsupported artifact location")
)

// Opener opens the content at an artifact location.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches to a backend by location scheme.
type Router struct {
	files Opener
	s3    Opener
}

// NewRouter creates a Router. s3 may be nil, in which case s3:// locations
// are unsupported.
func NewRouter(files, s3 Opener) *Router {
	return &Router{files: files, s3: s3}
}

// Open implements Opener.
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme, _, ok := strings.Cut(location, "://")
	if !ok {
		scheme = "file"
	}

	switch strings.ToLower(scheme) {
	case "file":
		if r.files == nil {
			return nil, fmt.Errorf("%s: %w", location, ErrUnsupported)
		}
		return r.files.Open(ctx, location)
	case "s3":
		if r.s3 == nil {
			return nil, fmt.Errorf("%s: s3 is not configured: %w", location, ErrUnsupported)
		}
		return r.s3.Open(ctx, location)
	default:
		return nil, fmt.Errorf("%s: %w", location, ErrUnsupported)
	}
}
