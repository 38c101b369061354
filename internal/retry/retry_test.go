package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type hintError struct{ wait time.Duration }

func (h hintError) Error() string             { return "slow down" }
func (h hintError) RetryAfter() time.Duration { return h.wait }

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		attempt int
		err     error
		want    time.Duration
	}{
		{1, nil, time.Second},
		{2, nil, 2 * time.Second},
		{3, nil, 4 * time.Second},
		{4, nil, 5 * time.Second},
		{10, nil, 5 * time.Second},
		{0, nil, time.Second},
		{1, hintError{3 * time.Second}, 3 * time.Second},
		{1, hintError{time.Minute}, 5 * time.Second},
		{3, hintError{time.Second}, 4 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt, tt.err); got != tt.want {
			t.Errorf("Delay(%d, %v) = %v, want %v", tt.attempt, tt.err, got, tt.want)
		}
	}
}

func fastPolicy(max int) Policy {
	return Policy{MaxAttempts: max, Floor: 0, Ceil: 0, Factor: 2}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retries []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retries)
	}
}

func TestDo_ReturnsLastErrorAfterExhaustion(t *testing.T) {
	calls := 0
	last := errors.New("third")

	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("earlier")
	})

	if !errors.Is(err, last) {
		t.Fatalf("err = %v, want %v", err, last)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_UnrecoverableStopsImmediately(t *testing.T) {
	calls := 0
	disk := errors.New("disk full")

	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Unrecoverable(disk)
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, disk) {
		t.Errorf("err = %v, want %v", err, disk)
	}
	if IsUnrecoverable(err) {
		t.Error("marker should be stripped from the returned error")
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, Floor: time.Hour, Ceil: time.Hour, Factor: 2}
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestUnrecoverable_Nil(t *testing.T) {
	if Unrecoverable(nil) != nil {
		t.Error("Unrecoverable(nil) should be nil")
	}
}

func TestDo_RateLimitHintStretchesDelay(t *testing.T) {
	p := Policy{MaxAttempts: 3, Floor: time.Millisecond, Ceil: 20 * time.Millisecond, Factor: 2}
	var delays []time.Duration
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return hintError{10 * time.Millisecond}
		}
		if calls == 2 {
			return hintError{time.Hour}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("delays = %v, want %v", delays, want)
	}
}

func TestDo_UnrecoverableOnLastAttempt(t *testing.T) {
	disk := errors.New("disk full")
	calls := 0

	err := fastPolicy(2).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return Unrecoverable(disk)
		}
		return errors.New("transient")
	})

	if !errors.Is(err, disk) || IsUnrecoverable(err) {
		t.Errorf("err = %v, want unmarked %v", err, disk)
	}
}
