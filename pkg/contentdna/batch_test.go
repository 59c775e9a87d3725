package contentdna

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestRunBatch(t *testing.T) {
	errOdd := errors.New("odd")
	items := map[string]int{}
	for i := 0; i < 20; i++ {
		items[strconv.Itoa(i)] = i
	}

	var inFlight, peak atomic.Int32
	results, errs := RunBatch(context.Background(), items, 3, func(ctx context.Context, id string, n int) (int, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		if n%2 == 1 {
			return 0, errOdd
		}
		return n * n, nil
	})

	if len(results) != 10 || len(errs) != 10 {
		t.Fatalf("Expected 10 results and 10 errors, got %d and %d", len(results), len(errs))
	}
	for id, v := range results {
		n, _ := strconv.Atoi(id)
		if v != n*n {
			t.Errorf("result %s = %d, want %d", id, v, n*n)
		}
	}
	for id, err := range errs {
		if !errors.Is(err, errOdd) {
			t.Errorf("error %s = %v, want errOdd", id, err)
		}
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("Expected at most 3 calls in flight, saw %d", p)
	}
}

func TestRunBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	results, errs := RunBatch(ctx, map[string]int{"a": 1, "b": 2}, 2, func(context.Context, string, int) (int, error) {
		called = true
		return 0, nil
	})
	if called {
		t.Error("fn should not run after cancellation")
	}
	if len(results) != 0 || len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %d results and %d errors", len(results), len(errs))
	}
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	}
}
