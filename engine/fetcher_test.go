package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedEngine plays back one canned response per attempt.
type scriptedEngine struct {
	name    Transport
	results []*FetchResult
	errs    []error
	calls   int
	times   []time.Time
}

func (e *scriptedEngine) Name() Transport { return e.name }

func (e *scriptedEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.times = append(e.times, time.Now())
	i := e.calls
	if i >= len(e.results) {
		i = len(e.results) - 1
	}
	e.calls++
	if e.errs[i] != nil {
		return nil, e.errs[i]
	}
	return e.results[i], nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func TestFetcher_SucceedsFirstAttempt(t *testing.T) {
	eng := &scriptedEngine{
		name:    TransportHTTP,
		results: []*FetchResult{{HTML: "<html></html>", StatusCode: 200}},
		errs:    []error{nil},
	}
	f := NewFetcher(fastPolicy(), eng)

	res, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportHTTP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StatusCode != 200 || eng.calls != 1 {
		t.Errorf("status = %d, calls = %d", res.StatusCode, eng.calls)
	}
}

func TestFetcher_RetriesServerErrorsThenSucceeds(t *testing.T) {
	eng := &scriptedEngine{
		name: TransportHTTP,
		results: []*FetchResult{
			{StatusCode: 503},
			{StatusCode: 503},
			{HTML: "ok", StatusCode: 200},
		},
		errs: []error{nil, nil, nil},
	}
	f := NewFetcher(fastPolicy(), eng)

	res, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportHTTP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HTML != "ok" {
		t.Errorf("got HTML %q", res.HTML)
	}
	if eng.calls != 3 {
		t.Errorf("calls = %d, want 3", eng.calls)
	}
}

func TestFetcher_ExhaustsAttemptsOnPersistentServerError(t *testing.T) {
	eng := &scriptedEngine{
		name:    TransportHTTP,
		results: []*FetchResult{{StatusCode: 503}},
		errs:    []error{nil},
	}
	f := NewFetcher(fastPolicy(), eng)

	_, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportHTTP)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Attempts != 3 || fe.StatusCode != 503 {
		t.Errorf("attempts = %d status = %d, want 3 and 503", fe.Attempts, fe.StatusCode)
	}
	if eng.calls != 3 {
		t.Errorf("calls = %d, want 3", eng.calls)
	}
}

func TestFetcher_BackoffGrowsBetweenAttempts(t *testing.T) {
	eng := &scriptedEngine{
		name:    TransportHTTP,
		results: []*FetchResult{{StatusCode: 503}},
		errs:    []error{nil},
	}
	f := NewFetcher(RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       time.Second,
		AttemptTimeout: time.Second,
	}, eng)

	_, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportHTTP)
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if len(eng.times) != 3 {
		t.Fatalf("attempts = %d, want 3", len(eng.times))
	}

	// With a 100ms base the first gap jitters within [80ms, 120ms] and the
	// second within [160ms, 240ms], so the second must be strictly longer.
	first := eng.times[1].Sub(eng.times[0])
	second := eng.times[2].Sub(eng.times[1])
	if first < 80*time.Millisecond {
		t.Errorf("first gap = %v, want at least 80ms", first)
	}
	if second <= first {
		t.Errorf("gaps = %v then %v, want growth", first, second)
	}
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	eng := &scriptedEngine{
		name:    TransportHTTP,
		results: []*FetchResult{{StatusCode: 404}},
		errs:    []error{nil},
	}
	f := NewFetcher(fastPolicy(), eng)

	_, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportHTTP)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Attempts != 1 || fe.StatusCode != 404 {
		t.Errorf("attempts = %d status = %d, want 1 and 404", fe.Attempts, fe.StatusCode)
	}
	if eng.calls != 1 {
		t.Errorf("calls = %d, want 1", eng.calls)
	}
}

func TestFetcher_RetriesRateLimitedResponses(t *testing.T) {
	eng := &scriptedEngine{
		name: TransportHTTP,
		results: []*FetchResult{
			{StatusCode: 429, retryAfter: "0"},
			{HTML: "ok", StatusCode: 200},
		},
		errs: []error{nil, nil},
	}
	f := NewFetcher(fastPolicy(), eng)

	res, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportHTTP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HTML != "ok" || eng.calls != 2 {
		t.Errorf("HTML = %q, calls = %d", res.HTML, eng.calls)
	}
}

func TestFetcher_UnknownTransport(t *testing.T) {
	f := NewFetcher(fastPolicy())
	if f.Has(TransportBrowser) {
		t.Error("Has(browser) = true for an empty fetcher")
	}
	_, err := f.Fetch(context.Background(), "https://shop.example.com/p/1", TransportBrowser)
	if err == nil {
		t.Fatal("expected an error for a missing transport")
	}
}

func TestFetcher_StopsOnContextCancel(t *testing.T) {
	eng := &scriptedEngine{
		name:    TransportHTTP,
		results: []*FetchResult{{StatusCode: 503}},
		errs:    []error{nil},
	}
	f := NewFetcher(RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Hour, // the cancel must win the backoff sleep
		MaxDelay:    time.Hour,
	}, eng)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := f.Fetch(ctx, "https://shop.example.com/p/1", TransportHTTP)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if eng.calls != 1 {
		t.Errorf("calls = %d, want 1", eng.calls)
	}
}

func TestRetryAfterHint_Forms(t *testing.T) {
	r := &FetchResult{retryAfter: "7"}
	if d, ok := r.RetryAfterHint(); !ok || d != 7*time.Second {
		t.Errorf("delay-seconds form: got %v %v", d, ok)
	}

	r = &FetchResult{}
	if _, ok := r.RetryAfterHint(); ok {
		t.Error("empty header should report no hint")
	}

	r = &FetchResult{retryAfter: "garbage"}
	if _, ok := r.RetryAfterHint(); ok {
		t.Error("unparseable header should report no hint")
	}
}
