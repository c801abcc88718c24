package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// BrowserConfig controls the shared headless browser.
type BrowserConfig struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string
	Proxy      string

	// BlockedResourceTypes lists resource types the hijack router blocks
	// during navigation. Stylesheet, font and media bytes are dead weight
	// for extraction; images stay unblocked so lazy-load scripts still
	// populate src attributes.
	BlockedResourceTypes []string

	Pool PagePoolConfig
}

// Browser owns the headless browser process and its page pool. Both the
// plain and the stealth browser engines share one Browser.
type Browser struct {
	browser *rod.Browser
	pool    *PagePool
	cfg     BrowserConfig
}

// NewBrowser launches a headless browser and initialises the page pool.
func NewBrowser(cfg BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	pool, err := NewPagePool(cfg.Pool,
		func() (*rod.Page, error) {
			return browser.Page(proto.TargetCreateTarget{})
		},
		func(page *rod.Page) {
			_ = page.Close()
		},
	)
	if err != nil {
		browser.MustClose()
		return nil, fmt.Errorf("browser: page pool: %w", err)
	}
	slog.Info("page pool created", "minPages", cfg.Pool.MinPages, "hardMax", cfg.Pool.HardMax)

	return &Browser{browser: browser, pool: pool, cfg: cfg}, nil
}

// Stats returns a snapshot of the page pool's current state.
func (b *Browser) Stats() (maxPages, livePages, activePages int) {
	return b.cfg.Pool.HardMax, b.pool.Size(), b.pool.ActiveCount()
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining page pool")
	b.pool.Stop()
	slog.Info("browser shutting down: closing browser")
	b.browser.MustClose()
}

// Engine returns a transport view over this browser. With stealth enabled
// the engine injects anti-detection JS before every navigation and reports
// itself as the browser-stealth transport.
func (b *Browser) Engine(stealthMode bool) *BrowserEngine {
	return &BrowserEngine{b: b, stealth: stealthMode}
}

// BrowserEngine fetches pages through the shared headless browser.
type BrowserEngine struct {
	b       *Browser
	stealth bool
}

func (e *BrowserEngine) Name() Transport {
	if e.stealth {
		return TransportBrowserStealth
	}
	return TransportBrowser
}

// Fetch renders the page and returns its DOM HTML.
//
// Lifecycle:
//  1. acquire a page from the pool (ctx-aware, so cancellation mid-wait
//     never leaks a slot)
//  2. defer: navigate to about:blank and return the page to the pool —
//     this runs on every exit path, including timeout and cancellation
//  3. stealth injection and hijack mount, both before navigation
//  4. navigate, wait for the DOM to stabilise, read status/HTML/title
func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	handle, err := e.b.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser_engine: acquire page: %w", err)
	}
	page := handle.Page

	success := false
	defer func() {
		// Cleanup uses the original page reference (without the request
		// context) so it succeeds even after the request context expired.
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("browser_engine: cleanup navigation failed", "error", navErr)
		}
		e.b.pool.Put(handle, success)
	}()

	// Stealth JS must be installed before navigation to take effect.
	if e.stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("browser_engine: stealth injection failed, proceeding without",
				"error", evalErr)
		}
	}

	// Referer makes direct product-page hits look like search traffic.
	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if len(extraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(extraHeaders),
		}.Call(page)
	}

	// Block image/stylesheet/font/media bytes; must be mounted pre-navigation.
	router := setupHijack(page, e.b.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeNavError(navErr)
	}

	// WaitRequestIdle conflicts with the hijack router's Fetch domain on
	// Chromium 145+, so wait for the DOM to stop mutating instead.
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("browser_engine: WaitDOMStable did not converge, proceeding",
			"error", stableErr)
	}

	// Status code via the performance API — avoids CDP event listeners that
	// clash with the hijack router.
	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}
	if statusCode == 0 {
		statusCode = 200
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeNavError(htmlErr)
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	success = true
	return &FetchResult{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		Transport:  e.Name(),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeNavError keeps context errors distinguishable for the Fetcher's
// retry classification.
func categorizeNavError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("browser_engine: navigation failed: %w", err)
	}
}
