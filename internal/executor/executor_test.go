package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAsCompletedReturnsAllResultsInlineForSingleWorker(t *testing.T) {
	e := New(1, "")
	items := []any{1, 2, 3, 4}
	fn := func(ctx context.Context, item any) (any, error) {
		n := item.(int)
		return n * n, nil
	}

	got := map[int]bool{}
	for ft := range e.AsCompleted(context.Background(), fn, items) {
		v, err := ft.Result()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got[v.(int)] = true
	}
	for _, want := range []int{1, 4, 9, 16} {
		if !got[want] {
			t.Fatalf("expected result %d among %v", want, got)
		}
	}
}

func TestAsCompletedRunsConcurrentlyAndCapturesErrors(t *testing.T) {
	e := New(4, "")
	items := []any{1, 2, 3}
	boom := errors.New("boom")
	fn := func(ctx context.Context, item any) (any, error) {
		if item.(int) == 2 {
			return nil, boom
		}
		return item, nil
	}

	var errCount, okCount int
	for ft := range e.AsCompleted(context.Background(), fn, items) {
		if ft.Err != nil {
			errCount++
		} else {
			okCount++
		}
	}
	if errCount != 1 || okCount != 2 {
		t.Fatalf("expected 1 error and 2 ok results, got errCount=%d okCount=%d", errCount, okCount)
	}
}

func TestAsCompletedStopsSubmittingAfterCancellation(t *testing.T) {
	e := New(2, "")
	ctx, cancel := context.WithCancel(context.Background())

	var started int32
	items := make([]any, 20)
	for i := range items {
		items[i] = i
	}
	fn := func(ctx context.Context, item any) (any, error) {
		atomic.AddInt32(&started, 1)
		time.Sleep(5 * time.Millisecond)
		return item, nil
	}

	results := e.AsCompleted(ctx, fn, items)
	time.Sleep(2 * time.Millisecond)
	cancel()

	count := 0
	for range results {
		count++
	}
	if count >= len(items) {
		t.Fatalf("expected cancellation to discard some results, got all %d", count)
	}
}

func TestRunCollectsAllResults(t *testing.T) {
	e := New(2, "")
	items := []any{1, 2, 3}
	fn := func(ctx context.Context, item any) (any, error) { return item, nil }
	results := e.Run(context.Background(), fn, items)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestGroupFailsFastOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	items := []any{1, 2, 3}
	err := Group(context.Background(), 2, items, func(ctx context.Context, item any) error {
		if item.(int) == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}
