package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoadLimiter_AcquireRelease(t *testing.T) {
	limiter := NewLoadLimiter(2, time.Second)
	ctx := context.Background()

	if err := limiter.Acquire(ctx, "card-a"); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx, "card-b"); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	status := limiter.Status()
	if status.Active != 2 || status.Available != 0 || status.MaxConcurrent != 2 {
		t.Errorf("Status = %+v, want active=2 available=0 max=2", status)
	}

	limiter.Release("card-a")
	limiter.Release("card-b")

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
}

func TestLoadLimiter_StatusPerCard(t *testing.T) {
	limiter := NewLoadLimiter(4, time.Second)
	ctx := context.Background()

	for _, id := range []string{"card-a", "card-a", "card-b"} {
		if err := limiter.Acquire(ctx, id); err != nil {
			t.Fatalf("Acquire(%s) failed: %v", id, err)
		}
	}

	cards := limiter.Status().Cards
	if cards["card-a"] != 2 || cards["card-b"] != 1 {
		t.Errorf("Cards = %v, want card-a=2 card-b=1", cards)
	}

	limiter.Release("card-b")
	if _, ok := limiter.Status().Cards["card-b"]; ok {
		t.Error("card-b should be dropped once it holds no slot")
	}

	limiter.Release("card-a")
	limiter.Release("card-a")
	if cards := limiter.Status().Cards; cards != nil {
		t.Errorf("Cards = %v, want nil when idle", cards)
	}
}

func TestLoadLimiter_BlocksWhenFull(t *testing.T) {
	limiter := NewLoadLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx, "card-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release("card-a")

	err := limiter.Acquire(ctx, "card-b")
	if !errors.Is(err, ErrTooManyLoads) {
		t.Errorf("expected ErrTooManyLoads, got %v", err)
	}

	status := limiter.Status()
	if status.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", status.Rejected)
	}
	if status.Waiting != 0 {
		t.Errorf("Waiting = %d, want 0 after the rejected load gave up", status.Waiting)
	}
}

func TestLoadLimiter_ReportsWaiting(t *testing.T) {
	limiter := NewLoadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background(), "card-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- limiter.Acquire(context.Background(), "card-b")
	}()

	deadline := time.Now().Add(time.Second)
	for limiter.Status().Waiting != 1 {
		if time.Now().After(deadline) {
			t.Fatal("second load never reported as waiting")
		}
		time.Sleep(5 * time.Millisecond)
	}

	limiter.Release("card-a")
	if err := <-acquired; err != nil {
		t.Fatalf("waiting Acquire failed: %v", err)
	}
	limiter.Release("card-b")
}

func TestLoadLimiter_ContextCancelled(t *testing.T) {
	limiter := NewLoadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background(), "card-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release("card-a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Acquire(ctx, "card-b"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := limiter.Status().Rejected; got != 0 {
		t.Errorf("Rejected = %d, a cancelled wait is not a rejection", got)
	}
}

func TestLoadLimiter_Defaults(t *testing.T) {
	limiter := NewLoadLimiter(0, 0)
	if got := limiter.Status().MaxConcurrent; got != DefaultMaxConcurrentLoads {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentLoads)
	}
}

func TestLoadLimiter_ConcurrentAccess(t *testing.T) {
	const maxConcurrent = 3
	limiter := NewLoadLimiter(maxConcurrent, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background(), "card-a"); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release("card-a")

			mu.Lock()
			if c := limiter.ActiveCount(); c > maxObserved {
				maxObserved = c
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	if maxObserved > maxConcurrent {
		t.Errorf("observed %d concurrent loads, limit is %d", maxObserved, maxConcurrent)
	}
}

func TestLoadLimiter_WaitForDrain(t *testing.T) {
	limiter := NewLoadLimiter(2, time.Second)
	if err := limiter.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain on an idle limiter = %v", err)
	}

	if err := limiter.Acquire(context.Background(), "card-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		limiter.Release("card-a")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain = %v, want nil", err)
	}
}

func TestLoadLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewLoadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background(), "card-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release("card-a")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain = %v, want DeadlineExceeded", err)
	}
}
