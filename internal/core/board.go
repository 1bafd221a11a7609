package core

import (
	"sync"
	"time"
)

// Board is the view-model behind one mounted CSV tables card.
//
// It holds the ordered record list and the per-artifact loading flags.
// Loads for different artifacts run concurrently and only meet here, so
// every write replaces state for a single artifact name.
type Board struct {
	ID        string
	RunID     string
	Artifacts []Artifact
	CreatedAt time.Time

	mu      sync.RWMutex
	records []Record
	loading map[string]bool

	notifier *Notifier
}

// NewBoard creates a board for the CSV-eligible subset of artifacts.
func NewBoard(id, runID string, artifacts []Artifact) *Board {
	return &Board{
		ID:        id,
		RunID:     runID,
		Artifacts: FilterCSV(artifacts),
		CreatedAt: time.Now(),
		loading:   make(map[string]bool),
		notifier:  NewNotifier(),
	}
}

// Notifier returns the board's change notifier.
func (b *Board) Notifier() *Notifier {
	return b.notifier
}

// Artifact looks up a CSV-eligible artifact by name.
func (b *Board) Artifact(name string) (Artifact, bool) {
	for _, a := range b.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// SetLoading records whether name is being loaded.
func (b *Board) SetLoading(name string, loading bool) {
	b.mu.Lock()
	if loading {
		b.loading[name] = true
	} else {
		delete(b.loading, name)
	}
	b.mu.Unlock()
	b.notifier.Broadcast()
}

// IsLoading reports whether name is being loaded.
func (b *Board) IsLoading(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loading[name]
}

// AnyLoading reports whether any artifact is being loaded.
func (b *Board) AnyLoading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.loading) > 0
}

// Put stores rec, removing any earlier record with the same name.
// The new record is appended, so the list reflects completion order.
func (b *Board) Put(rec Record) {
	b.mu.Lock()
	kept := b.records[:0:0]
	for _, r := range b.records {
		if r.Name != rec.Name {
			kept = append(kept, r)
		}
	}
	b.records = append(kept, rec)
	b.mu.Unlock()
	b.notifier.Broadcast()
}

// Record returns the current record for name.
func (b *Board) Record(name string) (Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.records {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Snapshot is a consistent copy of a board's state.
type Snapshot struct {
	CardID    string          `json:"card_id"`
	RunID     string          `json:"run_id"`
	Artifacts []Artifact      `json:"artifacts"`
	Records   []Record        `json:"records"`
	Loading   map[string]bool `json:"loading"`
}

// Snapshot copies the record list and loading map.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	records := make([]Record, len(b.records))
	copy(records, b.records)

	loading := make(map[string]bool, len(b.loading))
	for k, v := range b.loading {
		loading[k] = v
	}

	return Snapshot{
		CardID:    b.ID,
		RunID:     b.RunID,
		Artifacts: b.Artifacts,
		Records:   records,
		Loading:   loading,
	}
}
