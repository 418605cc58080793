package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kisanmitra/agriadvisor/cache"
)

type brokenStore struct {
	setErr  error
	getErr  error
	pingErr error
	lose    bool
	removed []string
}

func (s *brokenStore) Get(context.Context, string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	if s.lose {
		return "", false, nil
	}
	return "", true, nil
}

func (s *brokenStore) Set(context.Context, string, string) error { return s.setErr }

func (s *brokenStore) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	return nil
}

func (s *brokenStore) Ping(context.Context) error { return s.pingErr }

func TestStoreChecker_Healthy(t *testing.T) {
	store := cache.NewMemoryStore(0)
	c := NewStoreChecker(store)

	r := c.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("Status = %v (%s: %v), want healthy", r.Status, r.Message, r.Error)
	}
	if store.Len() != 0 {
		t.Error("probe key left behind")
	}
	if c.Name() != "cache_store" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestStoreChecker_Degraded(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name    string
		store   cache.Store
		wantErr error
	}{
		{"nil store", nil, cache.ErrNilStore},
		{"full", cache.NewMemoryStore(4), cache.ErrStoreFull},
		{"ping fails", &brokenStore{pingErr: errDown}, errDown},
		{"write fails", &brokenStore{setErr: errDown}, errDown},
		{"read fails", &brokenStore{getErr: errDown}, errDown},
		{"value lost", &brokenStore{lose: true}, ErrProbeMismatch},
		{"value differs", &brokenStore{}, ErrProbeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStoreChecker(tt.store).Check(context.Background())
			if r.Status != StatusDegraded {
				t.Errorf("Status = %v, want degraded", r.Status)
			}
			if !errors.Is(r.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", r.Error, tt.wantErr)
			}
		})
	}
}

func TestStoreChecker_RemovesProbeAfterWrite(t *testing.T) {
	store := &brokenStore{getErr: errors.New("timeout")}
	NewStoreChecker(store).Check(context.Background())
	if len(store.removed) != 1 || store.removed[0] != ProbeKey {
		t.Errorf("removed = %v, want [%s]", store.removed, ProbeKey)
	}
}

type fixedCooldown time.Duration

func (f fixedCooldown) CooldownRemaining() time.Duration { return time.Duration(f) }

func TestCooldownChecker(t *testing.T) {
	if r := NewCooldownChecker(fixedCooldown(0)).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("closed cooldown Status = %v, want healthy", r.Status)
	}

	r := NewCooldownChecker(fixedCooldown(42 * time.Second)).Check(context.Background())
	if r.Status != StatusDegraded {
		t.Fatalf("open cooldown Status = %v, want degraded", r.Status)
	}
	if r.Details["remaining_seconds"] != 42.0 {
		t.Errorf("remaining_seconds = %v, want 42", r.Details["remaining_seconds"])
	}
}
