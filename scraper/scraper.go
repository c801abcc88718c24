// Package scraper orchestrates the scrape pipeline: classify the URL, fetch
// the page, extract raw fields with the platform's strategy, and normalize
// them into the canonical product. Each request advances through the stages
// init → classified → fetched → extracted → normalized → done; failures
// report the stage they happened in.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/extract"
	"github.com/storeforge/prodscrape/models"
	"github.com/storeforge/prodscrape/normalize"
	"github.com/storeforge/prodscrape/platform"
)

// Scraper runs the full pipeline. It is stateless across requests and safe
// for concurrent use; concurrency is bounded by the browser page pool
// underneath the fetcher, not here.
type Scraper struct {
	fetcher  *engine.Fetcher
	registry *extract.Registry
}

// New creates a Scraper over the given fetcher and strategy registry.
func New(fetcher *engine.Fetcher, registry *extract.Registry) *Scraper {
	return &Scraper{fetcher: fetcher, registry: registry}
}

// Result is a successful scrape outcome with its timing breakdown.
type Result struct {
	Product   *models.Product
	Transport engine.Transport
	Timing    models.TimingInfo
}

// Scrape runs one product scrape end to end. The request's Timeout bounds
// the whole pipeline; cancellation of ctx is honored at every stage
// boundary, during fetch retries, and inside browser navigation.
func (s *Scraper) Scrape(ctx context.Context, req *models.ScrapeRequest) (*Result, *models.ScrapeError) {
	req.Defaults()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
	defer cancel()

	// Stage: init → classified.
	plat, normalizedURL, err := platform.Classify(req.URL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, models.StageInit, "",
			"URL is not a valid product page address", err)
	}
	log := slog.With("url", normalizedURL, "platform", plat)

	transport := engine.DefaultTransport(plat)
	if t, ok := engine.ParseTransport(req.PreferredTransport); ok {
		transport = t
	}
	// Deployments without a browser degrade to plain HTTP.
	if !s.fetcher.Has(transport) {
		transport = engine.TransportHTTP
	}

	// Stage: classified → fetched.
	fetchStart := time.Now()
	res, serr := s.fetchWithFallback(ctx, log, normalizedURL, transport, plat)
	fetchMs := time.Since(fetchStart).Milliseconds()
	if serr != nil {
		return nil, serr
	}

	// Stage: fetched → extracted → normalized.
	extractStart := time.Now()
	raw, res, serr := s.extract(ctx, log, res, plat)
	if serr != nil {
		return nil, serr
	}

	product, nerr := normalize.Normalize(normalize.Input{
		Raw:       raw,
		Platform:  plat,
		SourceURL: normalizedURL,
		FinalURL:  res.FinalURL,
		MaxImages: req.MaxImages,
	})
	if nerr != nil {
		return nil, models.NewScrapeError(models.ErrCodeNormalization, models.StageNormalized, plat,
			"extracted fields could not be normalized into a product", nerr)
	}
	extractMs := time.Since(extractStart).Milliseconds()

	log.Info("scrape done",
		"transport", res.Transport,
		"completeness", product.Completeness(),
		"images", len(product.Images),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Product:   product,
		Transport: res.Transport,
		Timing: models.TimingInfo{
			TotalMs:   time.Since(start).Milliseconds(),
			FetchMs:   fetchMs,
			ExtractMs: extractMs,
		},
	}, nil
}

// fetchWithFallback runs the retry loop on the chosen transport and, when
// that exhausts, once more on the next transport in the escalation chain.
// Failures of this edge are reported at the fetched stage.
func (s *Scraper) fetchWithFallback(ctx context.Context, log *slog.Logger, url string, t engine.Transport, plat models.Platform) (*engine.FetchResult, *models.ScrapeError) {
	res, err := s.fetcher.Fetch(ctx, url, t)
	if err == nil {
		return res, nil
	}
	if serr := timeoutError(ctx, err, models.StageFetched, plat); serr != nil {
		return nil, serr
	}

	if alt, ok := engine.Alternate(t); ok && s.fetcher.Has(alt) {
		log.Warn("fetch failed, escalating transport", "from", t, "to", alt, "error", err)
		res, altErr := s.fetcher.Fetch(ctx, url, alt)
		if altErr == nil {
			return res, nil
		}
		if serr := timeoutError(ctx, altErr, models.StageFetched, plat); serr != nil {
			return nil, serr
		}
		err = altErr
	}

	return nil, models.NewScrapeError(models.ErrCodeFetchFailed, models.StageFetched, plat,
		"page could not be fetched", err)
}

// extract runs the platform strategy with two recoveries:
//
//   - A blocked page gets one refetch on the next transport in the
//     escalation chain, then the same strategy runs again.
//   - A severely degraded extraction (no title and no price) is re-run with
//     the generic strategy on the same page; the less degraded of the two
//     results wins.
func (s *Scraper) extract(ctx context.Context, log *slog.Logger, res *engine.FetchResult, plat models.Platform) (*models.RawProductFields, *engine.FetchResult, *models.ScrapeError) {
	strategy := s.registry.For(plat)

	raw, err := strategy.Extract(res)
	if errors.Is(err, extract.ErrBlocked) {
		alt, ok := engine.Alternate(res.Transport)
		if !ok || !s.fetcher.Has(alt) {
			return nil, nil, blockedError(plat, err)
		}
		log.Warn("blocked page detected, refetching on stealth transport",
			"from", res.Transport, "to", alt)
		altRes, fetchErr := s.fetcher.Fetch(ctx, res.FinalURL, alt)
		if fetchErr != nil {
			if serr := timeoutError(ctx, fetchErr, models.StageFetched, plat); serr != nil {
				return nil, nil, serr
			}
			return nil, nil, blockedError(plat, err)
		}
		res = altRes
		raw, err = strategy.Extract(res)
		if errors.Is(err, extract.ErrBlocked) {
			return nil, nil, blockedError(plat, err)
		}
	}
	if err != nil {
		if serr := timeoutError(ctx, err, models.StageExtracted, plat); serr != nil {
			return nil, nil, serr
		}
		return nil, nil, models.NewScrapeError(models.ErrCodeInternal, models.StageExtracted, plat,
			"page content could not be parsed", err)
	}

	if raw.SeverelyDegraded() && plat != models.PlatformGeneric {
		log.Warn("strategy returned no title and no price, retrying with generic extraction")
		if genRaw, genErr := s.registry.Generic().Extract(res); genErr == nil && !genRaw.SeverelyDegraded() {
			raw = genRaw
		}
	}
	return raw, res, nil
}

// blockedError reports terminal anti-bot outcomes. The page never became
// usable content, so the failure belongs to the fetched stage even though
// detection happens during extraction.
func blockedError(plat models.Platform, err error) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeBlocked, models.StageFetched, plat,
		"page is protected by anti-bot measures", err)
}

// timeoutError maps context expiry to SCRAPE_TIMEOUT; nil when the error is
// not timeout-related.
func timeoutError(ctx context.Context, err error, stage models.Stage, plat models.Platform) *models.ScrapeError {
	if ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	cause := ctx.Err()
	if cause == nil {
		cause = err
	}
	if errors.Is(cause, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeInternal, stage, plat, "request canceled", cause)
	}
	return models.NewScrapeError(models.ErrCodeTimeout, stage, plat,
		"scrape did not finish within the request timeout", cause)
}
