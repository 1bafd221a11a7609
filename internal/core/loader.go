package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/csvcard/internal/logging"
	"github.com/sourcegraph/conc/pool"
)

// LocalAccessError wraps any failure to read a local artifact through the
// run's artifact endpoint. Its message starts with LocalAccessPrefix, which
// is what enables the manual upload control.
type LocalAccessError struct {
	Path string
	Err  error
}

func (e *LocalAccessError) Error() string {
	cause := "unknown error"
	if e.Err != nil {
		cause = e.Err.Error()
		var se *StatusError
		if errors.As(e.Err, &se) {
			cause = "failed to fetch artifact: " + se.Error()
		}
	}
	return fmt.Sprintf("%s: %s. %s", LocalAccessPrefix, e.Path, cause)
}

func (e *LocalAccessError) Unwrap() error { return e.Err }

// ErrNoFileSelected is recorded when an upload arrives without a file.
var ErrNoFileSelected = errors.New("no file selected")

// keepUploadable wraps a failure for a local artifact as a LocalAccessError
// so the record still offers the manual upload control. Remote artifacts
// and errors that already carry the marker pass through.
func keepUploadable(a Artifact, err error) error {
	var lae *LocalAccessError
	if err == nil || !IsLocalArtifact(a) || errors.As(err, &lae) {
		return err
	}
	return &LocalAccessError{Path: localPath(a), Err: err}
}

func localPath(a Artifact) string {
	if a.Path != "" {
		return a.Path
	}
	return a.URI
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// MaxParallel bounds the goroutines one card uses for its fan-out.
	MaxParallel int
	// Timeout bounds each artifact load, including its wait for a slot.
	// Zero leaves loads bounded only by the caller's context.
	Timeout time.Duration
	// MaxUploadBytes caps manually uploaded files.
	MaxUploadBytes int64
}

// Loader turns artifacts into records on a Board.
type Loader struct {
	fetcher *Fetcher
	limiter *LoadLimiter
	opts    LoaderOptions
}

// NewLoader creates a Loader. A nil limiter gets a default one.
func NewLoader(fetcher *Fetcher, limiter *LoadLimiter, opts LoaderOptions) *Loader {
	if limiter == nil {
		limiter = NewLoadLimiter(DefaultMaxConcurrentLoads, DefaultMaxWaitTime)
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Loader{fetcher: fetcher, limiter: limiter, opts: opts}
}

// Limiter returns the limiter shared by all loads.
func (l *Loader) Limiter() *LoadLimiter {
	return l.limiter
}

// LoadAll loads every artifact on the board concurrently and returns once
// all of them have a record. pagePath is the URL path of the page showing
// the card; local artifacts take their run ID from it.
func (l *Loader) LoadAll(ctx context.Context, b *Board, pagePath string) {
	p := pool.New().WithMaxGoroutines(l.opts.MaxParallel)
	for _, a := range b.Artifacts {
		p.Go(func() {
			l.Load(ctx, b, pagePath, a)
		})
	}
	p.Wait()
}

// Start marks every artifact on the board as loading and runs LoadAll in
// the background. The returned channel is closed once all loads finish.
func (l *Loader) Start(ctx context.Context, b *Board, pagePath string) <-chan struct{} {
	for _, a := range b.Artifacts {
		b.SetLoading(a.Name, true)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.LoadAll(ctx, b, pagePath)
	}()
	return done
}

// Load fetches and parses one artifact and stores the outcome on b.
// Failures become an error record for that artifact only. Each load gets
// its own deadline, so artifacts queued behind slow ones are unaffected.
func (l *Loader) Load(ctx context.Context, b *Board, pagePath string, a Artifact) {
	logger := logging.WithFields(ctx, "card_id", b.ID, "artifact", a.Name)

	b.SetLoading(a.Name, true)
	defer b.SetLoading(a.Name, false)

	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	data, err := l.fetch(ctx, pagePath, b.ID, a)
	if err != nil {
		logger.Warn("artifact load failed", "error", err)
		b.Put(errorRecord(a, err.Error()))
		return
	}

	table := ParseCSV(data)
	logger.Debug("artifact loaded", "rows", len(table.Rows), "columns", len(table.Columns))
	b.Put(successRecord(a, table))
}

func (l *Loader) fetch(ctx context.Context, pagePath, cardID string, a Artifact) ([]byte, error) {
	if err := l.limiter.Acquire(ctx, cardID); err != nil {
		return nil, keepUploadable(a, err)
	}
	defer l.limiter.Release(cardID)

	if IsLocalArtifact(a) {
		runID, err := RunIDFromPath(pagePath)
		if err != nil {
			return nil, err
		}

		data, err := l.fetcher.Local(ctx, runID, a.Name)
		if err != nil {
			return nil, &LocalAccessError{Path: localPath(a), Err: err}
		}
		return data, nil
	}

	data, err := l.fetcher.Remote(ctx, a.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CSV: %w", err)
	}
	return data, nil
}

// Upload is the manual fallback for artifacts whose local file could not
// be reached. A nil file means the user cancelled the picker: the board is
// left as it was and no error is reported. Otherwise the file replaces the
// artifact's record, clearing any earlier error. A failed upload of a local
// artifact keeps the record uploadable.
func (l *Loader) Upload(ctx context.Context, b *Board, a Artifact, file io.Reader) error {
	if file == nil {
		return nil
	}

	logger := logging.WithFields(ctx, "card_id", b.ID, "artifact", a.Name)

	b.SetLoading(a.Name, true)
	defer b.SetLoading(a.Name, false)

	data, err := l.readUpload(ctx, b.ID, file)
	if err != nil {
		err = keepUploadable(a, err)
		logger.Warn("manual upload failed", "error", err)
		b.Put(errorRecord(a, err.Error()))
		return err
	}

	table := ParseCSV(data)
	logger.Info("manual upload parsed", "rows", len(table.Rows), "columns", len(table.Columns))
	b.Put(successRecord(a, table))
	return nil
}

// NoFileSelected records that the picker returned without a file. Unlike a
// cancellation this replaces the artifact's record with an error, which
// for a local artifact still offers the upload control.
func (l *Loader) NoFileSelected(ctx context.Context, b *Board, a Artifact) {
	l.Reject(ctx, b, a, ErrNoFileSelected)
}

// Reject records an upload that failed before its content could be read,
// such as a request body over the size cap.
func (l *Loader) Reject(ctx context.Context, b *Board, a Artifact, err error) {
	err = keepUploadable(a, err)
	logging.WithFields(ctx, "card_id", b.ID, "artifact", a.Name).Warn("upload rejected", "error", err)
	b.Put(errorRecord(a, err.Error()))
}

func (l *Loader) readUpload(ctx context.Context, cardID string, file io.Reader) ([]byte, error) {
	if err := l.limiter.Acquire(ctx, cardID); err != nil {
		return nil, err
	}
	defer l.limiter.Release(cardID)

	data, err := io.ReadAll(io.LimitReader(file, l.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > l.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, l.opts.MaxUploadBytes)
	}
	return data, nil
}
