package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) StatusCode() int { return int(e) }

func fastConfig(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestWithRetryConfig_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, nil, fastConfig(5))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryConfig_StopsOnFatal(t *testing.T) {
	cause := errors.New("video is private")
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return &FatalError{Err: cause}
	}, nil, fastConfig(5))
	if !errors.Is(err, cause) {
		t.Errorf("expected fatal cause, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryConfig_WrapsLastError(t *testing.T) {
	cause := errors.New("still broken")
	err := WithRetryConfig(context.Background(), func() error { return cause }, nil, fastConfig(2))
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestWithRetryConfig_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetryConfig(ctx, func() error { return nil }, nil, fastConfig(2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAdaptiveLimiter_BackoffOnRateLimit(t *testing.T) {
	lim := NewAdaptiveLimiter(8, 1, 10, 1, 0.5)
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls == 1 {
			return statusErr(429)
		}
		return nil
	}, lim, fastConfig(3))
	if err != nil {
		t.Fatal(err)
	}
	if got := lim.CurrentLimit(); got != 4 {
		t.Errorf("expected limit halved to 4, got %v", got)
	}
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(2, 1, 3, 5, 0.1)
	lim.Success()
	if got := lim.CurrentLimit(); got != 3 {
		t.Errorf("expected clamp to max 3, got %v", got)
	}
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 1 {
		t.Errorf("expected clamp to min 1, got %v", got)
	}
}
