package templates

import "net/url"

// RunCardURL is where the run page fetches the card partial.
func RunCardURL(runID string) string {
	return "/runs/" + url.PathEscape(runID) + "/csv-card"
}

// pageTitle prefers the run's display name.
func pageTitle(runID, runName string) string {
	if runName == "" {
		return runID
	}
	return runName
}
