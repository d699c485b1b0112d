package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteRunsExactlyOnce(t *testing.T) {
	guard := NewGuard("op", DefaultConfig(), nil)

	calls := 0
	err := guard.Execute(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want exactly 1 (no internal retry)", calls)
	}
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	guard := NewGuard("op", Config{
		Enabled:          true,
		MinRequests:      3,
		FailureRatio:     0.5,
		OpenTimeout:      time.Minute,
		HalfOpenMaxCalls: 1,
	}, nil)

	fail := func(context.Context) error { return errors.New("boom") }
	for i := 0; i < 3; i++ {
		_ = guard.Execute(context.Background(), fail)
	}

	calls := 0
	err := guard.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("error = %v, want open circuit", err)
	}
	if calls != 0 {
		t.Fatalf("callback ran %d times behind an open circuit", calls)
	}
}

func TestClassifierKeepsBenignErrorsOffTheBreaker(t *testing.T) {
	benign := errors.New("user error")
	guard := NewGuard("op", Config{
		Enabled:          true,
		MinRequests:      3,
		FailureRatio:     0.5,
		OpenTimeout:      time.Minute,
		HalfOpenMaxCalls: 1,
	}, func(err error) ErrorClassification {
		return ErrorClassification{RecordFailure: !errors.Is(err, benign)}
	})

	for i := 0; i < 10; i++ {
		_ = guard.Execute(context.Background(), func(context.Context) error { return benign })
	}

	err := guard.Execute(context.Background(), func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("benign errors tripped the breaker: %v", err)
	}
}

func TestDisabledGuardPassesThrough(t *testing.T) {
	guard := NewGuard("op", Config{Enabled: false}, nil)
	err := guard.Execute(context.Background(), func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	guard := NewGuard("op", DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := guard.Execute(ctx, func(context.Context) error {
		t.Fatalf("callback must not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
