// Package retrylimit provides adaptive rate limiting and retry with backoff
// for clients of flaky upstream services.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.WithRetryMax(ctx, func() error {
//	    return doSomeWork()
//	}, lim, 3)
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// =============================================================================
// Limiter
// =============================================================================

// AdaptiveLimiter is a rate limit that grows on success and shrinks on
// errors. Safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
// Parameters:
//   - initial: starting requests per second
//   - min: minimum allowed rate
//   - max: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on failure (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, min, max rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	burst := max1(int(initial))
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burst),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return a.limiter.Wait(ctx)
}

// Success raises the rate unless an error was seen in the last 10 seconds.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > 10*time.Second {
		a.adjustLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate after an overload signal.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjustLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjustLimit(newLimit rate.Limit) {
	oldLimit := a.limiter.Limit()

	if newLimit > a.maxLimit {
		newLimit = a.maxLimit
	} else if newLimit < a.minLimit {
		newLimit = a.minLimit
	}

	if newLimit != oldLimit {
		a.limiter.SetLimit(newLimit)
		a.limiter.SetBurst(max1(int(newLimit)))
	}
}

// =============================================================================
// Errors
// =============================================================================

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// ErrorClassifier reports whether err should slow the limiter down.
type ErrorClassifier func(error) bool

// DefaultClassifier slows down on 429 and 5xx.
func DefaultClassifier(err error) bool {
	return isRateLimitError(err) || isServerError(err)
}

// =============================================================================
// Retry
// =============================================================================

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts     int                          // Maximum number of attempts (0 = capped at 100)
	InitialDelay    time.Duration                // Initial delay between retries
	MaxDelay        time.Duration                // Maximum delay between retries
	RateLimitDelay  time.Duration                // Fixed delay for rate limit errors
	Multiplier      float64                      // Delay multiplier for exponential backoff
	Jitter          bool                         // Add random jitter
	ErrorClassifier ErrorClassifier              // nil = DefaultClassifier
	OnRetry         func(attempt int, err error) // Optional callback on each retry
}

// DefaultRetryConfig returns the default configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     100,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		RateLimitDelay:  100 * time.Millisecond,
		Multiplier:      2.0,
		Jitter:          true,
		ErrorClassifier: DefaultClassifier,
	}
}

// WithRetryMax executes fn with exponential backoff up to maxAttempts times.
func WithRetryMax(ctx context.Context, fn func() error, lim *AdaptiveLimiter, maxAttempts int) error {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = maxAttempts
	return WithRetryConfig(ctx, fn, lim, cfg)
}

// WithRetryConfig executes fn until it succeeds, returns a FatalError, the
// context ends, or MaxAttempts is reached. The last error is wrapped in the
// returned error.
func WithRetryConfig(ctx context.Context, fn func() error, lim *AdaptiveLimiter, cfg RetryConfig) error {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 100
	}
	if cfg.ErrorClassifier == nil {
		cfg.ErrorClassifier = DefaultClassifier
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
				if attempt > 1 {
					log.Debug().Int("attempt", attempt).Float64("rps", lim.CurrentLimit()).Msg("[Retry] Success after retries")
				}
			}
			return nil
		}
		lastErr = err

		if isFatalError(err) {
			return err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if isRateLimitError(err) {
			if lim != nil {
				lim.RateLimited()
				log.Warn().Int("attempt", attempt).Float64("rps", lim.CurrentLimit()).Msg("[Retry] Rate limited")
			}
			if err := sleep(ctx, cfg.RateLimitDelay); err != nil {
				return err
			}
			continue
		}

		if cfg.ErrorClassifier(err) && lim != nil {
			lim.RateLimited()
		}

		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("[Retry] Request failed")

		nextDelay := delay
		if cfg.Jitter {
			nextDelay = addJitter(delay)
		}
		if err := sleep(ctx, nextDelay); err != nil {
			return err
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// =============================================================================
// Helper functions
// =============================================================================

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// addJitter adds 0-25% random jitter to delay.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}

func isFatalError(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

func isRateLimitError(err error) bool {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == http.StatusTooManyRequests
	}
	return false
}

func isServerError(err error) bool {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code >= 500 && code < 600
	}
	return false
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
