package daemon

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextBackoffDelayWithoutJitter(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{50, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := NextBackoffDelay(cfg, tc.attempt, nil); got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(1))

	for attempt := 2; attempt <= 6; attempt++ {
		base := NextBackoffDelay(BackoffConfig{
			InitialDelay: cfg.InitialDelay,
			Multiplier:   cfg.Multiplier,
			MaxDelay:     cfg.MaxDelay,
		}, attempt, nil)
		for i := 0; i < 100; i++ {
			got := NextBackoffDelay(cfg, attempt, rng)
			if got < base/2 || got > base+base/2 {
				t.Fatalf("attempt %d: jittered delay %v outside [%v, %v]", attempt, got, base/2, base+base/2)
			}
		}
	}
}

func TestNextBackoffDelayFirstAttemptSkipsJitter(t *testing.T) {
	cfg := DefaultBackoffConfig()
	rng := rand.New(rand.NewSource(1))
	if got := NextBackoffDelay(cfg, 1, rng); got != cfg.InitialDelay {
		t.Fatalf("first attempt: got %v, want %v", got, cfg.InitialDelay)
	}
}

func TestNextBackoffDelayZeroInitial(t *testing.T) {
	cfg := BackoffConfig{Multiplier: 2.0}
	if got := NextBackoffDelay(cfg, 3, nil); got != 0 {
		t.Fatalf("zero initial delay: got %v", got)
	}
}
