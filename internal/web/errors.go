package web

// errors.go maps handler errors to responses.
//
// The technical error is logged with the request ID; the client gets the
// core.MapError message as an HTML partial for card requests, JSON for API
// requests, or plain text otherwise.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvcard/internal/blob"
	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/JonMunkholm/csvcard/internal/logging"
	"github.com/JonMunkholm/csvcard/internal/store"
	"github.com/JonMunkholm/csvcard/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes a user-facing error response.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	switch {
	case statusCode >= http.StatusInternalServerError:
		logger.Error("request error", attrs...)
	case !core.IsUserFacing(err):
		logger.Error("request error without a user message", attrs...)
	default:
		logger.Warn("request error", attrs...)
	}

	switch {
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	case isPartial(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	default:
		respondErrorText(w, err, statusCode)
	}
}

// statusFor picks the HTTP status for a known error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrRunNotFound),
		errors.Is(err, store.ErrArtifactNotFound),
		errors.Is(err, blob.ErrNotFound),
		errors.Is(err, blob.ErrUnsupported),
		errors.Is(err, errCardNotFound):
		return http.StatusNotFound
	case errors.Is(err, blob.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotCSV):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyLoads), errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorText(w http.ResponseWriter, err error, statusCode int) {
	http.Error(w, core.FormatUserError(err), statusCode)
}

// renderErrorPartial renders the error fragment the card script swaps in.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isPartial reports whether the card script made the request.
func isPartial(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" || r.Header.Get("X-Card-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
