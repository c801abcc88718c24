package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// RetryPolicy bounds the fetch retry loop. Backoff state is per-request:
// two concurrent scrapes never share or interleave their delays.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles per
	// attempt (±20% jitter) up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// AttemptTimeout is the deadline of a single fetch attempt.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy is the fetch policy used when config leaves it unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

// FetchError is returned when every attempt failed. It carries the last
// status code (0 for transport errors) so callers can report the cause.
type FetchError struct {
	Attempts   int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch failed after %d attempt(s): HTTP %d", e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("fetch failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher selects a transport and runs the bounded retry loop around it.
// It is safe for concurrent use; all mutable retry state is call-local.
type Fetcher struct {
	engines map[Transport]Engine
	policy  RetryPolicy
}

// NewFetcher creates a Fetcher over the given engines.
func NewFetcher(policy RetryPolicy, engines ...Engine) *Fetcher {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	m := make(map[Transport]Engine, len(engines))
	for _, e := range engines {
		m[e.Name()] = e
	}
	return &Fetcher{engines: m, policy: policy}
}

// Has reports whether a transport is available. Deployments without a
// browser run HTTP-only, and the orchestrator must know not to escalate.
func (f *Fetcher) Has(t Transport) bool {
	_, ok := f.engines[t]
	return ok
}

// Fetch retrieves the URL over the given transport with bounded retries.
//
// Retryable: transport errors, per-attempt timeouts, 408, 429 (honoring a
// Retry-After hint) and 5xx. Any other 4xx fails immediately. Cancellation
// of ctx is honored at every attempt boundary and during backoff sleeps.
func (f *Fetcher) Fetch(ctx context.Context, url string, t Transport) (*FetchResult, error) {
	eng, ok := f.engines[t]
	if !ok {
		return nil, &FetchError{Attempts: 0, Err: fmt.Errorf("transport %q not available", t)}
	}

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.backoff(attempt - 1)
			// A 429 Retry-After hint overrides computed backoff.
			if hint, hintOK := retryAfterOf(lastErr); hintOK && hint > delay {
				delay = hint
			}
			slog.Debug("fetch retrying", "url", url, "transport", t,
				"attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := f.attempt(ctx, eng, url)
		if err == nil {
			return result, nil
		}

		var se *statusError
		if errors.As(err, &se) {
			lastStatus = se.status
			if !se.retryable {
				return nil, &FetchError{Attempts: attempt, StatusCode: se.status, Err: err}
			}
		} else if ctx.Err() != nil {
			// Overall deadline or cancellation: stop immediately.
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, &FetchError{Attempts: f.policy.MaxAttempts, StatusCode: lastStatus, Err: lastErr}
}

// attempt runs one engine fetch under the per-attempt timeout and converts
// HTTP error statuses into retryable/non-retryable statusErrors.
func (f *Fetcher) attempt(ctx context.Context, eng Engine, url string) (*FetchResult, error) {
	attemptCtx := ctx
	if f.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, f.policy.AttemptTimeout)
		defer cancel()
	}

	result, err := eng.Fetch(attemptCtx, &FetchRequest{URL: url})
	if err != nil {
		return nil, err
	}

	switch {
	case result.StatusCode < 400:
		return result, nil
	case result.StatusCode == http.StatusTooManyRequests:
		hint, _ := result.RetryAfterHint()
		return nil, &statusError{status: result.StatusCode, retryable: true, retryAfter: hint}
	case result.StatusCode == http.StatusRequestTimeout:
		return nil, &statusError{status: result.StatusCode, retryable: true}
	case result.StatusCode >= 500:
		return nil, &statusError{status: result.StatusCode, retryable: true}
	default:
		return nil, &statusError{status: result.StatusCode, retryable: false}
	}
}

// backoff computes the delay before attempt n+1: BaseDelay·2^(n-1) with
// ±20% jitter, capped at MaxDelay.
func (f *Fetcher) backoff(n int) time.Duration {
	d := f.policy.BaseDelay << (n - 1)
	if d > f.policy.MaxDelay {
		d = f.policy.MaxDelay
	}
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * jitter)
}

// statusError marks a fetch attempt rejected because of an HTTP status.
type statusError struct {
	status     int
	retryable  bool
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.status)
}

func retryAfterOf(err error) (time.Duration, bool) {
	var se *statusError
	if errors.As(err, &se) && se.retryAfter > 0 {
		return se.retryAfter, true
	}
	return 0, false
}
