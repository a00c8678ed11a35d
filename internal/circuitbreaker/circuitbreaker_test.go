package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(failures int, timeout time.Duration) *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: failures,
		SuccessThreshold: 2,
		Timeout:          timeout,
	})
}

func TestCircuitBreakerStateClosed(t *testing.T) {
	cb := newTestBreaker(3, 100*time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := newTestBreaker(3, 100*time.Millisecond)
	testErr := errors.New("test error")

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return testErr }); err != testErr {
			t.Errorf("Expected test error, got: %v", err)
		}
	}

	if cb.GetState() != StateOpen {
		t.Errorf("Expected state to be Open, got %v", cb.GetState())
	}

	// Next call should fail immediately with circuit open error
	if err := cb.Call(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb := newTestBreaker(2, 20*time.Millisecond)
	testErr := errors.New("test error")

	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state to be Open, got %v", cb.GetState())
	}

	time.Sleep(30 * time.Millisecond)

	// First probe after the timeout is allowed
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected probe to be allowed, got: %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected state to be HalfOpen, got %v", cb.GetState())
	}
}

func TestCircuitBreakerClosesAfterSuccesses(t *testing.T) {
	cb := newTestBreaker(2, 20*time.Millisecond)
	testErr := errors.New("test error")

	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })
	time.Sleep(30 * time.Millisecond)

	// SuccessThreshold=2 successes close the circuit again
	cb.Call(func() error { return nil })
	cb.Call(func() error { return nil })
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := newTestBreaker(2, 20*time.Millisecond)
	testErr := errors.New("test error")

	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })
	time.Sleep(30 * time.Millisecond)

	// A failed half-open probe trips it again immediately
	cb.Call(func() error { return testErr })
	if cb.GetState() != StateOpen {
		t.Errorf("Expected state to be Open after half-open failure, got %v", cb.GetState())
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(3, 100*time.Millisecond)
	testErr := errors.New("test error")

	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })
	cb.Call(func() error { return nil }) // resets the streak
	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to remain Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := New(Config{Name: "defaults"})
	if cb.failureThreshold != 5 || cb.successThreshold != 2 || cb.timeout != 60*time.Second {
		t.Errorf("unexpected defaults: %d %d %s", cb.failureThreshold, cb.successThreshold, cb.timeout)
	}
}
