// Package templates renders the card's HTML as templ components.
package templates

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/a-h/templ"
)

// UploadHint is shown under a local access error.
const UploadHint = `Click "Load File" to manually select and upload this CSV file.`

// CardProps is everything the CSV tables card renders from.
type CardProps struct {
	// RunLoading is set while run info is still being fetched.
	RunLoading bool

	CardID    string
	RunID     string
	Artifacts []core.Artifact
	Records   []core.Record
	Loading   map[string]bool
	// Queries holds the search text per artifact name.
	Queries      map[string]string
	PollInterval time.Duration
}

// PropsFromSnapshot builds CardProps from a board snapshot.
func PropsFromSnapshot(s core.Snapshot, queries map[string]string, poll time.Duration) CardProps {
	return CardProps{
		CardID:       s.CardID,
		RunID:        s.RunID,
		Artifacts:    s.Artifacts,
		Records:      s.Records,
		Loading:      s.Loading,
		Queries:      queries,
		PollInterval: poll,
	}
}

// AnyLoading reports whether any artifact is still loading.
func (p CardProps) AnyLoading() bool {
	for _, v := range p.Loading {
		if v {
			return true
		}
	}
	return false
}

// CardURL is where the card partial is re-rendered.
func CardURL(cardID string) string {
	return "/cards/" + url.PathEscape(cardID)
}

// UploadURL is where a manually selected file is posted.
func UploadURL(cardID, name string) string {
	return CardURL(cardID) + "/artifacts/" + url.PathEscape(name) + "/upload"
}

// Subtitle returns "1 CSV file found" / "N CSV files found".
func Subtitle(n int) string {
	if n == 1 {
		return "1 CSV file found"
	}
	return strconv.Itoa(n) + " CSV files found"
}

// EventsURL is the card's server-sent event stream.
func EventsURL(cardID string) string {
	return CardURL(cardID) + "/events"
}

func sizeLabel(rec core.Record) string {
	return fmt.Sprintf("(%d rows, %d columns)", len(rec.Rows), len(rec.Columns))
}

// columnWidth splits the table width evenly between columns.
func columnWidth(n int) templ.SafeCSS {
	if n <= 0 {
		return ""
	}
	return templ.SafeCSS("width:" + strconv.FormatFloat(100/float64(n), 'f', -1, 64) + "%")
}

// showUpload reports whether the Load File control is offered for rec: only
// after a local access error on an artifact the card still lists.
func showUpload(p CardProps, rec core.Record) bool {
	if !rec.IsLocalAccessError() {
		return false
	}
	_, ok := artifactByName(p.Artifacts, rec.Name)
	return ok
}

// openURL is the Open link target. Local artifacts are served through the
// run artifact endpoint since browsers will not follow file URIs from a page.
func openURL(p CardProps, rec core.Record) templ.SafeURL {
	if a, ok := artifactByName(p.Artifacts, rec.Name); ok && p.RunID != "" && core.IsLocalArtifact(a) {
		return templ.SafeURL(core.ArtifactEndpoint(p.RunID, a.Name))
	}
	return templ.URL(rec.URI)
}

func artifactByName(artifacts []core.Artifact, name string) (core.Artifact, bool) {
	for _, a := range artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return core.Artifact{}, false
}
