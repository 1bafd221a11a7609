package core

import (
	"errors"
	"strings"
)

// ErrNotCSV is returned when a card operation names an artifact that is
// not CSV-eligible.
var ErrNotCSV = errors.New("not a csv artifact")

// Artifact identifies a file attached to a run.
// Name is the key used by every per-card state map.
type Artifact struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	URI  string `json:"uri" yaml:"uri"`
}

// Record is the loaded form of one CSV artifact.
// A record with a non-empty Error carries no rows or columns.
type Record struct {
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Rows    []Row    `json:"data"`
	Columns []string `json:"columns"`
	Error   string   `json:"error,omitempty"`
}

// LocalAccessPrefix starts every error message produced when a local
// artifact cannot be read through the run's artifact endpoint.
const LocalAccessPrefix = "Cannot access local file"

// successRecord builds a record from a parsed table.
func successRecord(a Artifact, t Table) Record {
	return Record{
		Name:    a.Name,
		URI:     a.URI,
		Rows:    t.Rows,
		Columns: t.Columns,
	}
}

// errorRecord builds a record carrying only an error message.
func errorRecord(a Artifact, msg string) Record {
	if msg == "" {
		msg = "Failed to load CSV"
	}
	return Record{
		Name:    a.Name,
		URI:     a.URI,
		Rows:    []Row{},
		Columns: []string{},
		Error:   msg,
	}
}

// IsLocalAccessError reports whether the record failed because its local
// file was unreachable. Only these records offer the manual upload path.
func (r Record) IsLocalAccessError() bool {
	return strings.Contains(r.Error, LocalAccessPrefix)
}

// IsCSV reports whether the artifact's name or path ends in ".csv",
// ignoring case.
func IsCSV(a Artifact) bool {
	return hasCSVSuffix(a.Name) || hasCSVSuffix(a.Path)
}

func hasCSVSuffix(s string) bool {
	return strings.HasSuffix(strings.ToLower(s), ".csv")
}

// FilterCSV returns the CSV-eligible artifacts in their original order.
func FilterCSV(artifacts []Artifact) []Artifact {
	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if IsCSV(a) {
			out = append(out, a)
		}
	}
	return out
}

// IsLocal reports whether uri points at on-disk storage rather than a
// directly fetchable HTTP(S) location.
func IsLocal(uri string) bool {
	switch {
	case strings.HasPrefix(uri, "/"),
		strings.HasPrefix(uri, "./"),
		strings.HasPrefix(uri, "../"),
		strings.HasPrefix(uri, "file://"):
		return true
	}
	return hasDrivePrefix(uri)
}

// hasDrivePrefix matches Windows paths such as `C:\data` or `C:/data`.
func hasDrivePrefix(s string) bool {
	if len(s) < 3 || s[1] != ':' {
		return false
	}
	c := s[0]
	isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return isLetter && (s[2] == '\\' || s[2] == '/')
}

// IsLocalArtifact reports whether a is read through the run artifact
// endpoint, which is the case when either its URI or its path looks local.
func IsLocalArtifact(a Artifact) bool {
	return IsLocal(a.URI) || IsLocal(a.Path)
}
