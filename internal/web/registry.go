package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// errCardNotFound is returned for unknown or expired card IDs.
var errCardNotFound = errors.New("card not found")

// cardRegistry holds mounted boards by card ID. A board unmounts when it is
// deleted or has not been touched for ttl.
type cardRegistry struct {
	boards *gocache.Cache
}

func newCardRegistry(ttl time.Duration) *cardRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &cardRegistry{boards: gocache.New(ttl, cleanup)}
}

// Mount creates a board for the run's artifacts under a new card ID.
func (c *cardRegistry) Mount(runID string, artifacts []core.Artifact) *core.Board {
	b := core.NewBoard(uuid.NewString(), runID, artifacts)
	c.boards.SetDefault(b.ID, b)
	return b
}

// Get returns the board for id and extends its lifetime.
func (c *cardRegistry) Get(id string) (*core.Board, error) {
	v, ok := c.boards.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errCardNotFound)
	}
	b := v.(*core.Board)
	c.boards.SetDefault(id, b)
	return b, nil
}

// Mounted reports whether id is mounted without extending its lifetime.
func (c *cardRegistry) Mounted(id string) bool {
	_, ok := c.boards.Get(id)
	return ok
}

// Unmount drops the board for id and wakes its listeners so open event
// streams can end.
func (c *cardRegistry) Unmount(id string) {
	v, ok := c.boards.Get(id)
	c.boards.Delete(id)
	if ok {
		v.(*core.Board).Notifier().Broadcast()
	}
}

// Count returns the number of mounted cards.
func (c *cardRegistry) Count() int {
	return c.boards.ItemCount()
}
