package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/JonMunkholm/csvcard/internal/logging"
	"github.com/JonMunkholm/csvcard/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// pathParam returns a decoded route parameter. chi matches on the escaped
// path when it contains encoded slashes, so values may still be escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// pagePath is the path of the page showing the card. The card script sends
// it as X-Page-Path; HX-Current-URL is honoured for htmx hosts.
func pagePath(r *http.Request) string {
	if p := r.Header.Get("X-Page-Path"); p != "" {
		return p
	}
	if p := r.Header.Get("HX-Current-URL"); p != "" {
		return p
	}
	return r.URL.Path
}

// searchQueries collects per-table search text from "q.<artifact>" params.
func searchQueries(r *http.Request) map[string]string {
	out := make(map[string]string)
	for key, vals := range r.URL.Query() {
		name, ok := strings.CutPrefix(key, "q.")
		if !ok || name == "" || len(vals) == 0 {
			continue
		}
		out[name] = vals[0]
	}
	return out
}

func (s *Server) renderCard(w http.ResponseWriter, r *http.Request, b *core.Board) {
	props := templates.PropsFromSnapshot(b.Snapshot(), searchQueries(r), s.cfg.Card.PollInterval)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.CSVTablesCard(props).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render card", "card_id", b.ID, "error", err)
	}
}

// handleRunPage renders the run overview page hosting the card.
func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r, "runID")

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.RunPage(run.ID, run.Name).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render run page", "run_id", run.ID, "error", err)
	}
}

// handleMountCard mounts a card for the run and starts loading its CSV
// artifacts in the background.
func (s *Server) handleMountCard(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r, "runID")

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	b := s.cards.Mount(run.ID, run.Artifacts)
	logger := logging.WithFields(r.Context(), "card_id", b.ID, "run_id", run.ID)
	logger.Info("card mounted", "csv_artifacts", len(b.Artifacts))

	if len(b.Artifacts) > 0 {
		// Loads outlive the request that mounted the card. Each one is
		// bounded by the loader's per-artifact timeout.
		done := s.loader.Start(context.WithoutCancel(r.Context()), b, pagePath(r))
		go func() {
			<-done
			logger.Debug("card loads finished")
		}()
	}

	w.Header().Set("X-Card-ID", b.ID)
	s.renderCard(w, r, b)
}

// handleCard re-renders a mounted card.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	b, err := s.cards.Get(pathParam(r, "cardID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	s.renderCard(w, r, b)
}

// handleCardJSON returns a mounted card's records and loading state.
func (s *Server) handleCardJSON(w http.ResponseWriter, r *http.Request) {
	b, err := s.cards.Get(pathParam(r, "cardID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot())
}

// handleUnmountCard drops a mounted card. Unknown IDs are not an error.
func (s *Server) handleUnmountCard(w http.ResponseWriter, r *http.Request) {
	s.cards.Unmount(pathParam(r, "cardID"))
	w.WriteHeader(http.StatusNoContent)
}

// cardEvent is the payload of a card change event.
type cardEvent struct {
	Loading bool `json:"loading"`
	Records int  `json:"records"`
}

// handleCardEvents streams a change event whenever the card's board
// changes. The stream ends when the client goes away or the card unmounts.
func (s *Server) handleCardEvents(w http.ResponseWriter, r *http.Request) {
	b, err := s.cards.Get(pathParam(r, "cardID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would cut the stream short.
	_ = rc.SetWriteDeadline(time.Time{})

	ch := b.Notifier().Subscribe()
	defer b.Notifier().Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flush := func() bool {
		if err := rc.Flush(); err != nil {
			logging.FromContext(r.Context()).Warn("card events: flush failed", "card_id", b.ID, "error", err)
			return false
		}
		return true
	}

	send := func() bool {
		snap := b.Snapshot()
		ev := cardEvent{Records: len(snap.Records)}
		for _, v := range snap.Loading {
			ev.Loading = ev.Loading || v
		}
		data, _ := json.Marshal(ev)
		fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
		return flush()
	}
	if !send() {
		return
	}

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-ch:
			if !s.cards.Mounted(b.ID) {
				fmt.Fprint(w, "event: unmounted\ndata: {}\n\n")
				flush()
				return
			}
			if !send() {
				return
			}
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			if !flush() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// handleUpload accepts a manually selected file for a card artifact.
//
// A "cancelled" form value means the picker was dismissed and nothing
// changes. A form without a file records "no file selected" for the
// artifact. Otherwise the file replaces the artifact's record.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	b, err := s.cards.Get(pathParam(r, "cardID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	name := pathParam(r, "name")
	a, ok := b.Artifact(name)
	if !ok {
		if !core.IsCSV(core.Artifact{Name: name}) {
			err := fmt.Errorf("%s: %w", name, core.ErrNotCSV)
			respondError(w, r, err, statusFor(err))
			return
		}
		err := fmt.Errorf("%s: artifact not found", name)
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	limit := s.cfg.Fetch.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = fmt.Errorf("%w: exceeds %d bytes", core.ErrFileTooLarge, limit)
			s.loader.Reject(r.Context(), b, a, err)
			s.renderCard(w, r, b)
			return
		}
		respondError(w, r, fmt.Errorf("parse upload form: %w", err), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if r.FormValue("cancelled") == "true" {
		_ = s.loader.Upload(r.Context(), b, a, nil)
		s.renderCard(w, r, b)
		return
	}

	file, _, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		s.loader.NoFileSelected(r.Context(), b, a)
	case err != nil:
		respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	default:
		defer file.Close()
		// Failures are recorded on the board and shown in the card.
		_ = s.loader.Upload(r.Context(), b, a, file)
	}

	s.renderCard(w, r, b)
}

// handleArtifact serves a run artifact's content from its storage location.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r, "runID")
	name := pathParam(r, "name")

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	a, err := run.Artifact(name)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	rc, err := s.blobs.Open(r.Context(), artifactLocation(a))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer rc.Close()

	ctype := "application/octet-stream"
	if core.IsCSV(a) {
		ctype = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(a.Name)}))
	w.Header().Set("Cache-Control", "no-store")

	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context()).Warn("artifact stream interrupted", "run_id", runID, "artifact", name, "error", err)
	}
}

// artifactLocation picks where an artifact's bytes live: an s3:// URI,
// else its path, else its URI.
func artifactLocation(a core.Artifact) string {
	if strings.HasPrefix(a.URI, "s3://") {
		return a.URI
	}
	if a.Path != "" {
		return a.Path
	}
	return a.URI
}

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status string                 `json:"status"`
	Cards  int                    `json:"cards"`
	Loads  core.LoadLimiterStatus `json:"loads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Cards:  s.cards.Count(),
		Loads:  s.loader.Limiter().Status(),
	})
}
