package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestInProcessLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewInProcessLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "ip:1.2.3.4"); err != nil {
			t.Fatalf("attempt %d: err = %v, want nil", i+1, err)
		}
	}
	if err := l.Allow(ctx, "ip:1.2.3.4"); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("attempt 4: err = %v, want ErrTooManyRequests", err)
	}

	// Other keys are independent.
	if err := l.Allow(ctx, "email:a@example.com"); err != nil {
		t.Errorf("other key: err = %v, want nil", err)
	}

	// A new window resets the count.
	now = now.Add(time.Minute)
	if err := l.Allow(ctx, "ip:1.2.3.4"); err != nil {
		t.Errorf("after window: err = %v, want nil", err)
	}
}

func TestInProcessLimiter_Disabled(t *testing.T) {
	l := NewInProcessLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if err := l.Allow(context.Background(), "k"); err != nil {
			t.Fatalf("attempt %d: err = %v, want nil", i+1, err)
		}
	}
}

func TestInProcessLimiter_PrunesExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewInProcessLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		_ = l.Allow(context.Background(), k)
	}
	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}

	now = now.Add(2 * time.Minute)
	_ = l.Allow(context.Background(), "d")
	if l.Len() != 1 {
		t.Errorf("Len after prune = %d, want 1", l.Len())
	}
}

func TestInProcessLimiter_Concurrent(t *testing.T) {
	l := NewInProcessLimiter(50, time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(context.Background(), "shared") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
