package core

// limiter.go bounds how many artifact loads run at once across all
// mounted cards. Fetches and manual uploads both take a slot, charged to
// the card they load for. When every slot is busy a load waits up to
// maxWait and then fails with ErrTooManyLoads, which becomes that
// artifact's error record.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyLoads is returned when no load slot frees up within maxWait.
var ErrTooManyLoads = errors.New("too many concurrent loads, please try again later")

// ErrRateLimited is returned when a client exceeds its request rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// DefaultMaxConcurrentLoads is the default limit for parallel loads.
const DefaultMaxConcurrentLoads = 8

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// LoadLimiter is a counting semaphore for artifact loads.
type LoadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu       sync.Mutex
	byCard   map[string]int
	active   int
	waiting  int
	rejected uint64
	// idle is closed whenever no load holds a slot.
	idle chan struct{}
}

// NewLoadLimiter creates a limiter allowing maxConcurrent simultaneous loads.
func NewLoadLimiter(maxConcurrent int, maxWait time.Duration) *LoadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	idle := make(chan struct{})
	close(idle)
	return &LoadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		byCard:  make(map[string]int),
		idle:    idle,
	}
}

// Acquire waits for a load slot on behalf of cardID. The caller must call
// Release with the same card ID once the load finishes.
func (l *LoadLimiter) Acquire(ctx context.Context, cardID string) error {
	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.waiting--
		if l.active == 0 {
			l.idle = make(chan struct{})
		}
		l.active++
		l.byCard[cardID]++
		l.mu.Unlock()
		return nil

	case <-timer.C:
		l.mu.Lock()
		l.waiting--
		l.rejected++
		l.mu.Unlock()
		return ErrTooManyLoads

	case <-ctx.Done():
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire for cardID.
func (l *LoadLimiter) Release(cardID string) {
	l.mu.Lock()
	l.active--
	if n := l.byCard[cardID] - 1; n > 0 {
		l.byCard[cardID] = n
	} else {
		delete(l.byCard, cardID)
	}
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()

	<-l.slots
}

// ActiveCount returns the number of loads holding a slot.
func (l *LoadLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until no load holds a slot or ctx ends.
func (l *LoadLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadLimiterStatus is a point-in-time view of the limiter.
type LoadLimiterStatus struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
	// Rejected counts loads that gave up waiting for a slot.
	Rejected uint64 `json:"rejected"`
	// Cards maps card ID to the slots it holds.
	Cards map[string]int `json:"cards,omitempty"`
}

// Status returns the limiter state for the health endpoint.
func (l *LoadLimiter) Status() LoadLimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cards map[string]int
	if len(l.byCard) > 0 {
		cards = make(map[string]int, len(l.byCard))
		for id, n := range l.byCard {
			cards[id] = n
		}
	}

	return LoadLimiterStatus{
		Active:        l.active,
		Waiting:       l.waiting,
		Available:     cap(l.slots) - l.active,
		MaxConcurrent: cap(l.slots),
		Rejected:      l.rejected,
		Cards:         cards,
	}
}
