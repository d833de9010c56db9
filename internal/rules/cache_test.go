package rules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   atomic.Int32
	rules   Rules
	err     error
	release chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context) (Rules, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Rules{}, f.err
	}
	return f.rules, nil
}

func someRules(token string) Rules {
	return Rules{
		AppToken:         token,
		StaticParam:      "sp",
		Prefix:           "p",
		Suffix:           "s",
		ChecksumConstant: 1,
		ChecksumIndexes:  []int{0},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCacheSingleFlight(t *testing.T) {
	fetcher := &stubFetcher{rules: someRules("tok"), release: make(chan struct{})}
	cache := NewCache(fetcher)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background())
			results <- err
		}()
	}

	// Give every caller time to join the in-flight fetch, then let it go.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", got)
	}
}

func TestCacheServesUntilTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	fetcher := &stubFetcher{rules: someRules("tok")}
	cache := NewCache(fetcher, WithTTL(time.Hour), WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		if _, err := cache.Get(context.Background()); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("expected 1 fetch before expiry, got %d", got)
	}

	clock.Advance(time.Hour + time.Second)
	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Fatalf("expected exactly 1 new fetch after expiry, got %d total", got)
	}
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	fetchErr := errors.New("boom")
	fetcher := &stubFetcher{err: fetchErr}
	cache := NewCache(fetcher)

	if _, err := cache.Get(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.rules = someRules("tok")
	fetcher.mu.Unlock()

	r, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("get after recovery: %v", err)
	}
	if r.AppToken != "tok" {
		t.Fatalf("unexpected rules after recovery: %+v", r)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Fatalf("expected retry after error, got %d fetches", got)
	}
}
