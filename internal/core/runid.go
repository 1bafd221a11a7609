package core

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoRunID is returned when a page path has no "runs/{id}" segment pair.
var ErrNoRunID = errors.New("could not determine run ID from current URL")

// RunIDFromPath returns the path segment that follows the first "runs"
// segment. Full URLs are accepted; only their path is inspected.
func RunIDFromPath(pagePath string) (string, error) {
	if u, err := url.Parse(pagePath); err == nil && u.Path != "" {
		pagePath = u.Path
	}

	parts := strings.Split(pagePath, "/")
	for i, part := range parts {
		if part != "runs" {
			continue
		}
		if i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
		break
	}
	return "", ErrNoRunID
}

// ArtifactEndpoint builds the per-run artifact serving path for name.
func ArtifactEndpoint(runID, name string) string {
	return "/api/runs/" + url.PathEscape(runID) + "/artifacts/" + url.PathEscape(name) + "/"
}
