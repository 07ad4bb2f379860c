package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fakeSleeper(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestDo_SucceedsAfterRateLimits(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts <= 4 {
			return &RateLimitError{Err: errors.New("429")}
		}
		return nil
	}, Options{MaxAttempts: 5, InitialDelay: time.Second, Sleep: fakeSleeper(&delays)})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 5 {
		t.Fatalf("attempts=%d, want 5", attempts)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays=%v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d]=%v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDo_RateLimitExhaustion(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return &RateLimitError{Err: errors.New("429")}
	}, Options{MaxAttempts: 5, Sleep: fakeSleeper(&delays)})

	if attempts != 5 {
		t.Fatalf("attempts=%d, want 5", attempts)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err=%v, want ErrRateLimited", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("rate-limit exhaustion should not be the generic terminal error")
	}
}

func TestDo_TransientExhaustionIsDistinct(t *testing.T) {
	var delays []time.Duration
	err := Do(context.Background(), func(context.Context) error {
		return &TransientError{Err: errors.New("connection reset")}
	}, Options{MaxAttempts: 3, Sleep: fakeSleeper(&delays)})

	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err=%v, want ErrExhausted", err)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatalf("transient exhaustion must not look like rate-limit exhaustion")
	}
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return &StatusError{Status: 400, Body: `{"error":"bad request"}`}
	}, Options{MaxAttempts: 5, Sleep: fakeSleeper(&delays)})

	if attempts != 1 {
		t.Fatalf("attempts=%d, want 1", attempts)
	}
	if len(delays) != 0 {
		t.Fatalf("no backoff expected, got %v", delays)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 400 {
		t.Fatalf("err=%v, want StatusError(400)", err)
	}
}

func TestDo_WrappedRetryableIsRecognized(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("call api: %w", &RateLimitError{})
		}
		return nil
	}, Options{Sleep: func(context.Context, time.Duration) error { return nil }})

	if err != nil || attempts != 2 {
		t.Fatalf("err=%v attempts=%d", err, attempts)
	}
}

func TestDo_ContextCancelInterruptsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return &RateLimitError{}
	}, Options{MaxAttempts: 5, InitialDelay: time.Hour})

	if attempts != 1 {
		t.Fatalf("attempts=%d, want 1", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestDo_RealBackoffElapsed(t *testing.T) {
	if testing.Short() {
		t.Skip("real backoff wait")
	}
	start := time.Now()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &RateLimitError{}
		}
		return nil
	}, Options{MaxAttempts: 3, InitialDelay: 20 * time.Millisecond})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	// 20ms + 40ms, allow scheduler slack.
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("elapsed=%v, want >= 60ms", elapsed)
	}
}
