package remote

import (
	"context"
	"errors"
	"testing"
)

type fakeTimeout struct{}

func (fakeTimeout) Error() string   { return "i/o timeout" }
func (fakeTimeout) Timeout() bool   { return true }
func (fakeTimeout) Temporary() bool { return true }

func fastRetryConfig() Config {
	return Config{RetryInitialMS: 1, RetryMaxElapsedSec: 2}
}

func TestRetryTimeoutsRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := retryTimeouts(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return fakeTimeout{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryTimeoutsPermanentOnOtherErrors(t *testing.T) {
	attempts := 0
	wantErr := errors.New("status 401")
	err := retryTimeouts(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Fatalf("non-timeout error retried %d times", attempts)
	}
}

func TestRetryTimeoutsBoundedByElapsed(t *testing.T) {
	cfg := Config{RetryInitialMS: 10, RetryMaxElapsedSec: 1}
	attempts := 0
	err := retryTimeouts(context.Background(), cfg, func() error {
		attempts++
		return fakeTimeout{}
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !isTimeout(err) {
		t.Fatalf("exhaustion should surface the timeout, got %v", err)
	}
	if attempts < 2 {
		t.Fatalf("attempts = %d, want several before exhaustion", attempts)
	}
}

func TestIsTimeout(t *testing.T) {
	if !isTimeout(fakeTimeout{}) {
		t.Fatal("net timeout not recognized")
	}
	if !isTimeout(context.DeadlineExceeded) {
		t.Fatal("deadline exceeded not recognized")
	}
	if isTimeout(errors.New("status 500")) {
		t.Fatal("plain error misclassified as timeout")
	}
}
