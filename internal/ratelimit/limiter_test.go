package ratelimit_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jobradar/jobradar/internal/ratelimit"
)

func TestLimiter_DomainBurst(t *testing.T) {
	t.Parallel()

	l := ratelimit.New(ratelimit.Config{
		DomainRate:  0.001,
		DomainBurst: 2,
		GlobalRate:  100,
		GlobalBurst: 100,
	})

	if !l.TryAcquire("example.com") {
		t.Fatal("first acquire should succeed")
	}
	if !l.TryAcquire("example.com") {
		t.Fatal("second acquire within burst should succeed")
	}
	if l.TryAcquire("example.com") {
		t.Fatal("third acquire should be rejected, burst exhausted")
	}

	// A different domain has its own bucket.
	if !l.TryAcquire("other.com") {
		t.Fatal("fresh domain should have its own burst")
	}
}

func TestLimiter_GlobalBucketBoundsAllDomains(t *testing.T) {
	t.Parallel()

	l := ratelimit.New(ratelimit.Config{
		DomainRate:  0.001,
		DomainBurst: 10,
		GlobalRate:  0.001,
		GlobalBurst: 3,
	})

	granted := 0
	for i := 0; i < 10; i++ {
		domain := string(rune('a'+i)) + ".com"
		if l.TryAcquire(domain) {
			granted++
		}
	}
	if granted != 3 {
		t.Fatalf("granted %d slots, want 3 (global burst)", granted)
	}
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	t.Parallel()

	l := ratelimit.New(ratelimit.Config{
		DomainRate:  0.001,
		DomainBurst: 1,
		GlobalRate:  100,
		GlobalBurst: 100,
	})

	if err := l.Acquire(context.Background(), "example.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "example.com")
	if err == nil {
		t.Fatal("expected context deadline error when bucket is empty")
	}
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	l := ratelimit.New(ratelimit.Config{
		DomainRate:  1000,
		DomainBurst: 100,
		GlobalRate:  1000,
		GlobalBurst: 100,
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.TryAcquire("example.com")
		}()
	}
	wg.Wait()
}

func TestLimiter_JitterWithinWindow(t *testing.T) {
	t.Parallel()

	l := ratelimit.New(ratelimit.Config{
		JitterMin: 100 * time.Millisecond,
		JitterMax: 200 * time.Millisecond,
	})
	for i := 0; i < 20; i++ {
		j := l.Jitter()
		if j < 100*time.Millisecond || j >= 200*time.Millisecond {
			t.Fatalf("jitter %v outside [100ms, 200ms)", j)
		}
	}
}

func TestHeaderRotator_AppliesHeaders(t *testing.T) {
	t.Parallel()

	r := ratelimit.NewHeaderRotator()
	req, err := http.NewRequest(http.MethodGet, "https://example.com", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	r.Apply(req)

	if req.Header.Get("User-Agent") == "" {
		t.Error("expected a user agent header")
	}
	if req.Header.Get("Accept") == "" {
		t.Error("expected an accept header")
	}
}

func TestHeaderRotator_RotatesUserAgents(t *testing.T) {
	t.Parallel()

	r := ratelimit.NewHeaderRotator()
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		seen[r.UserAgent()] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected rotation across user agents, saw %d distinct", len(seen))
	}
}
