// Package engine provides the transports that retrieve product pages:
// a plain HTTP client with a Chrome TLS fingerprint and a headless-browser
// client for pages that require rendering. The Fetcher wraps transport
// selection and the retry policy around them.
package engine

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/storeforge/prodscrape/models"
)

// Transport identifies the mechanism used to retrieve page content.
type Transport string

const (
	TransportHTTP           Transport = "http"
	TransportBrowser        Transport = "browser"
	TransportBrowserStealth Transport = "browser-stealth"
)

// Engine is the interface every transport implements.
type Engine interface {
	// Name returns the transport identifier.
	Name() Transport

	// Fetch retrieves the page content for the given request. A non-2xx
	// status is not an error at this level: the result carries the status
	// code and the Fetcher decides whether to retry.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// FetchResult is the output of a single engine fetch. It is owned by the
// fetch call that produced it and consumed read-only by extraction.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	Transport  Transport

	// retryAfter holds the raw Retry-After header of a 429 response.
	retryAfter string
}

// RetryAfterHint parses the Retry-After header of a 429 response, accepting
// both delay-seconds and HTTP-date forms.
func (r *FetchResult) RetryAfterHint() (time.Duration, bool) {
	if r.retryAfter == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(r.retryAfter); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(r.retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// DefaultTransport returns the transport a platform's pages need.
// AliExpress, Amazon and Best Buy render product data client-side, so they
// start on the browser transport; eBay and unknown shops are usually static.
func DefaultTransport(p models.Platform) Transport {
	switch p {
	case models.PlatformAliExpress, models.PlatformAmazon, models.PlatformBestBuy:
		return TransportBrowser
	default:
		return TransportHTTP
	}
}

// Alternate returns the next transport in the escalation chain
// (http → browser → browser-stealth) and whether one exists.
func Alternate(t Transport) (Transport, bool) {
	switch t {
	case TransportHTTP:
		return TransportBrowser, true
	case TransportBrowser:
		return TransportBrowserStealth, true
	default:
		return "", false
	}
}

// ParseTransport validates a transport hint from a request.
func ParseTransport(s string) (Transport, bool) {
	switch Transport(s) {
	case TransportHTTP, TransportBrowser, TransportBrowserStealth:
		return Transport(s), true
	}
	return "", false
}
