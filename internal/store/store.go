// Package store provides the run metadata the CSV card starts from: a run's
// identity and the artifacts attached to it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/csvcard/internal/config"
	"github.com/JonMunkholm/csvcard/internal/core"
)

var (
	// ErrRunNotFound is returned when a run ID is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrArtifactNotFound is returned when a run has no artifact by that name.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Run is an experiment run and its artifacts, in display order.
type Run struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Artifacts []core.Artifact `json:"artifacts" yaml:"artifacts"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}

// Artifact returns the run's artifact with the given name.
func (r *Run) Artifact(name string) (core.Artifact, error) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a, nil
		}
	}
	return core.Artifact{}, fmt.Errorf("%s on run %s: %w", name, r.ID, ErrArtifactNotFound)
}

// RunStore reads and writes runs.
type RunStore interface {
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	// PutRun inserts or fully replaces a run and its artifact list.
	PutRun(ctx context.Context, run *Run) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (RunStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	case "postgres":
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validateRun(run *Run) error {
	if run == nil || strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	seen := make(map[string]bool, len(run.Artifacts))
	for _, a := range run.Artifacts {
		if a.Name == "" {
			return fmt.Errorf("run %s: artifact name is required", run.ID)
		}
		if seen[a.Name] {
			return fmt.Errorf("run %s: duplicate artifact %q", run.ID, a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}
