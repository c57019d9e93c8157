package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 2})
	for i := 0; i < 10; i++ {
		if err := b.Execute(func() error { return nil }); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}
	if b.State() != BreakerClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("Execute error = %v, want backend error", err)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	// Calls are now rejected without running fn.
	ran := false
	err := b.Execute(func() error { ran = true; return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Execute error = %v, want ErrBreakerOpen", err)
	}
	if ran {
		t.Error("fn ran while the breaker was open")
	}
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 3})
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return errBackend })

	if b.State() != BreakerClosed {
		t.Errorf("state = %s, want closed (failures are not consecutive)", b.State())
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond})
	b.Execute(func() error { return errBackend })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	// The probe succeeds and closes the circuit.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("state = %s, want closed after probe", b.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond})
	b.Execute(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(func() error { return errBackend }); !errors.Is(err, errBackend) {
		t.Fatalf("probe error = %v, want backend error", err)
	}
	if b.State() != BreakerOpen {
		t.Errorf("state = %s, want open after failed probe", b.State())
	}
}
