package retry

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type hintErr struct{ d time.Duration }

func (e hintErr) Error() string             { return "rate limited" }
func (e hintErr) RetryAfter() time.Duration { return e.d }

func recordSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoExponentialBackoff(t *testing.T) {
	var delays []time.Duration
	calls := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second}

	err := Do(context.Background(), p, recordSleep(&delays), func(int) error {
		calls++
		return errors.New("boom")
	}, nil)

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if ex.Attempts != 5 || calls != 5 {
		t.Fatalf("expected 5 attempts, got %d (calls %d)", ex.Attempts, calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	if !reflect.DeepEqual(delays, want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
}

func TestDoHonorsHint(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), recordSleep(&delays), func(int) error {
		calls++
		if calls <= 3 {
			return hintErr{d: 7 * time.Second}
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
	for _, d := range delays {
		if d != 7*time.Second {
			t.Fatalf("expected hinted delay, got %v", delays)
		}
	}
}

func TestDoZeroHintFallsBack(t *testing.T) {
	s := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute}.Start()
	d, ok := s.Fail(hintErr{})
	if !ok || d != time.Second {
		t.Fatalf("expected base delay, got %v ok=%v", d, ok)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), recordSleep(new([]time.Duration)), func(int) error {
		calls++
		return context.Canceled
	}, nil)
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected immediate cancel, got %v after %d calls", err, calls)
	}
}

func TestDoOnRetry(t *testing.T) {
	var seen []int
	_ = Do(context.Background(), Policy{MaxAttempts: 3}, recordSleep(new([]time.Duration)), func(int) error {
		return errors.New("nope")
	}, func(attempt int, _ time.Duration, _ error) {
		seen = append(seen, attempt)
	})
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Fatalf("onRetry attempts = %v", seen)
	}
}

func TestSleepRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
