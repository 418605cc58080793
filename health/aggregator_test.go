package health

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixed(name string, s Status) Checker {
	return CheckerFunc(name, func(context.Context) Result {
		return Result{Status: s, Message: s.String()}
	})
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("b", StatusHealthy))
	agg.Register(fixed("a", StatusHealthy))
	agg.Register(fixed("b", StatusDegraded))

	if got := agg.CheckerNames(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("CheckerNames() = %v, want [b a]", got)
	}
	if r, _ := agg.Check(context.Background(), "b"); r.Status != StatusDegraded {
		t.Error("re-registering did not replace the checker")
	}
}

func TestAggregator_CheckUnknown(t *testing.T) {
	if _, err := NewAggregator().Check(context.Background(), "nope"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for i, s := range tt.statuses {
				agg.Register(fixed(string(rune('a'+i)), s))
			}
			results := agg.CheckAll(context.Background())
			if len(results) != len(tt.statuses) {
				t.Fatalf("results = %d, want %d", len(results), len(tt.statuses))
			}
			if got := Overall(results); got != tt.want {
				t.Errorf("Overall() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(CheckerFunc("slow", func(ctx context.Context) Result {
		select {
		case <-time.After(time.Second):
			return Healthy("late")
		case <-ctx.Done():
			<-time.After(time.Second)
			return Healthy("ignored")
		}
	}))
	agg.Register(fixed("fast", StatusHealthy))

	start := time.Now()
	results := agg.CheckAll(context.Background())
	if time.Since(start) > 500*time.Millisecond {
		t.Error("CheckAll did not honour the timeout")
	}
	if !errors.Is(results["slow"].Error, ErrCheckTimeout) || results["slow"].Status != StatusUnhealthy {
		t.Errorf("slow result = %+v", results["slow"])
	}
	if results["fast"].Status != StatusHealthy {
		t.Errorf("fast result = %+v", results["fast"])
	}
}
