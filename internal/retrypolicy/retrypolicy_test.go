package retrypolicy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	settings := Default()
	settings.Delay = time.Millisecond
	settings.MaxDelay = 5 * time.Millisecond

	attempts := 0
	err := Do(context.Background(), settings, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoReturnsLastErrorAfterExhaustingTries(t *testing.T) {
	settings := IORetrySettings{Tries: 2, Delay: time.Millisecond, Backoff: 2}
	attempts := 0
	err := Do(context.Background(), settings, func() error {
		attempts++
		return errors.New("persistent")
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	settings := IORetrySettings{Tries: 5, Delay: time.Millisecond, Backoff: 2}
	err := Do(ctx, settings, func() error {
		t.Fatalf("fn should not be called once context is cancelled")
		return nil
	})
	if err == nil {
		t.Fatalf("expected an error from a cancelled context")
	}
}
