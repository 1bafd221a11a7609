package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process RunStore used for tests and demo setups.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]Run)}
}

func (m *Memory) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	run.Artifacts = slices.Clone(run.Artifacts)
	return &run, nil
}

func (m *Memory) ListRuns(_ context.Context) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		r.Artifacts = slices.Clone(r.Artifacts)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutRun(_ context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}

	r := *run
	r.Artifacts = slices.Clone(run.Artifacts)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
