package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestCooldown_TripAndExpire(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	cd := NewCooldown(clock.Now)

	if cd.Active() {
		t.Fatal("new cooldown should be closed")
	}
	if !cd.Until().IsZero() {
		t.Error("Until() should be zero before the first trip")
	}

	cd.Trip(time.Minute)
	if !cd.Active() {
		t.Fatal("cooldown should be active after Trip")
	}
	if !errors.Is(cd.Check(), ErrCooldownActive) {
		t.Errorf("Check() = %v, want ErrCooldownActive", cd.Check())
	}

	clock.Advance(59 * time.Second)
	if got := cd.Remaining(); got != time.Second {
		t.Errorf("Remaining() = %v, want 1s", got)
	}

	clock.Advance(time.Second)
	if cd.Active() {
		t.Error("cooldown should close exactly at the deadline")
	}
	if err := cd.Check(); err != nil {
		t.Errorf("Check() after expiry = %v", err)
	}
}

func TestCooldown_Monotonic(t *testing.T) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	cd := NewCooldown(clock.Now)

	long := cd.Trip(time.Minute)
	short := cd.Trip(time.Second)

	if !short.Equal(long) {
		t.Errorf("a shorter trip moved the deadline back: %v -> %v", long, short)
	}

	clock.Advance(30 * time.Second)
	extended := cd.Trip(time.Minute)
	if !extended.After(long) {
		t.Error("a later trip should extend the deadline")
	}
}

func TestCooldown_Reset(t *testing.T) {
	cd := NewCooldown(nil)
	cd.Trip(time.Hour)
	cd.Reset()
	if cd.Active() {
		t.Error("Reset should close the window")
	}
}

func TestCooldown_ConcurrentTrips(t *testing.T) {
	cd := NewCooldown(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cd.Trip(time.Duration(i) * time.Second)
			_ = cd.Active()
		}(i)
	}
	wg.Wait()

	if cd.Remaining() < 48*time.Second {
		t.Errorf("longest trip lost: remaining %v", cd.Remaining())
	}
}
