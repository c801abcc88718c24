package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/extract"
	"github.com/storeforge/prodscrape/models"
)

// stubEngine serves one canned page for every URL.
type stubEngine struct {
	name   engine.Transport
	html   string
	status int
}

func (e *stubEngine) Name() engine.Transport { return e.name }

func (e *stubEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status := e.status
	if status == 0 {
		status = 200
	}
	return &engine.FetchResult{
		HTML:       e.html,
		StatusCode: status,
		FinalURL:   req.URL,
		Transport:  e.name,
	}, nil
}

func newTestScraper(engines ...engine.Engine) *Scraper {
	policy := engine.RetryPolicy{
		MaxAttempts:    1,
		BaseDelay:      time.Millisecond,
		MaxDelay:       time.Millisecond,
		AttemptTimeout: time.Second,
	}
	return New(engine.NewFetcher(policy, engines...), extract.NewRegistry())
}

const productPage = `<html><head><title>Walnut Desk Organizer | Example Shop</title></head><body>
<h1 class="product-title">Walnut Desk Organizer</h1>
<div class="price-current">$24.99</div>
<div class="product-description"><p>Five compartments for pens and cables.</p></div>
<div class="gallery"><img src="https://cdn.example.com/organizer.jpg"></div>
</body></html>`

func TestScrape_CompleteProduct(t *testing.T) {
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: productPage})

	res, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://shop.example.com/products/organizer",
	})
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}

	p := res.Product
	if p.Title != "Walnut Desk Organizer" {
		t.Errorf("title = %q", p.Title)
	}
	if p.PriceAmount == nil || *p.PriceAmount != 2499 || p.Currency != "USD" {
		t.Errorf("price = %v %q", p.PriceAmount, p.Currency)
	}
	if p.Completeness() != models.Complete {
		t.Errorf("completeness = %q, missing %v", p.Completeness(), p.FieldsMissing)
	}
	if res.Transport != engine.TransportHTTP {
		t.Errorf("transport = %q", res.Transport)
	}
	if p.SourcePlatform != models.PlatformGeneric {
		t.Errorf("platform = %q", p.SourcePlatform)
	}
}

func TestScrape_InvalidURL(t *testing.T) {
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: productPage})

	_, serr := s.Scrape(context.Background(), &models.ScrapeRequest{URL: "not a url"})
	if serr == nil {
		t.Fatal("expected an error")
	}
	if serr.Code != models.ErrCodeInvalidURL || serr.Stage != models.StageInit {
		t.Errorf("code = %q stage = %q", serr.Code, serr.Stage)
	}
}

const blockedPage = `<html><head><title>Just a moment...</title></head>
<body><p>Checking your browser.</p></body></html>`

func TestScrape_BlockedWithoutEscalationPath(t *testing.T) {
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: blockedPage})

	_, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://shop.example.com/products/organizer",
	})
	if serr == nil {
		t.Fatal("expected an error")
	}
	if serr.Code != models.ErrCodeBlocked || serr.Stage != models.StageFetched {
		t.Errorf("code = %q stage = %q", serr.Code, serr.Stage)
	}
}

func TestScrape_FetchFailureReportsFetchedStage(t *testing.T) {
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, status: 503})

	_, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://shop.example.com/products/organizer",
	})
	if serr == nil {
		t.Fatal("expected an error")
	}
	if serr.Code != models.ErrCodeFetchFailed || serr.Stage != models.StageFetched {
		t.Errorf("code = %q stage = %q, want FETCH_FAILED at fetched", serr.Code, serr.Stage)
	}
}

func TestScrape_PageWithoutProductFieldsIsPartial(t *testing.T) {
	page := `<html><head></head><body><nav>menu</nav></body></html>`
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: page})

	res, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://shop.example.com/landing",
	})
	if serr != nil {
		t.Fatalf("a fetchable page must not fail the pipeline: %v", serr)
	}
	if res.Product.Completeness() != models.Partial {
		t.Errorf("completeness = %q, want partial", res.Product.Completeness())
	}
	if len(res.Product.FieldsMissing) != 2 {
		t.Errorf("FieldsMissing = %v, want title and price", res.Product.FieldsMissing)
	}
}

func TestScrape_BlockedPageEscalatesTransport(t *testing.T) {
	s := newTestScraper(
		&stubEngine{name: engine.TransportHTTP, html: blockedPage},
		&stubEngine{name: engine.TransportBrowser, html: productPage},
	)

	res, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://shop.example.com/products/organizer",
	})
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}
	if res.Transport != engine.TransportBrowser {
		t.Errorf("transport = %q, want the escalated browser transport", res.Transport)
	}
	if res.Product.Title != "Walnut Desk Organizer" {
		t.Errorf("title = %q", res.Product.Title)
	}
}

func TestScrape_MissingPriceIsPartial(t *testing.T) {
	page := `<html><head><title>Example</title></head><body>
<h1 class="product-title">Mystery Gadget</h1>
<div class="product-description"><p>No price listed anywhere on this page.</p></div>
</body></html>`
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: page})

	res, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://shop.example.com/products/mystery",
	})
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}
	if res.Product.Completeness() != models.Partial {
		t.Errorf("completeness = %q, want partial", res.Product.Completeness())
	}
}

func TestScrape_DegradedStrategyFallsBackToGeneric(t *testing.T) {
	// A layout the dedicated strategy cannot read, but the generic one can.
	page := `<html><head><title>Example</title></head><body>
<div class="product-title">Walnut Desk Organizer</div>
<div class="price-current">$24.99</div>
</body></html>`
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: page})

	res, serr := s.Scrape(context.Background(), &models.ScrapeRequest{
		URL: "https://www.amazon.com/dp/B0TEST",
	})
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}
	if res.Product.Title != "Walnut Desk Organizer" {
		t.Errorf("title = %q", res.Product.Title)
	}
	if res.Product.SourcePlatform != models.PlatformAmazon {
		t.Errorf("platform = %q", res.Product.SourcePlatform)
	}
}

func TestScrape_CanceledRequest(t *testing.T) {
	s := newTestScraper(&stubEngine{name: engine.TransportHTTP, html: productPage})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, serr := s.Scrape(ctx, &models.ScrapeRequest{
		URL: "https://shop.example.com/products/organizer",
	})
	if serr == nil {
		t.Fatal("expected an error")
	}
	if serr.Code != models.ErrCodeInternal {
		t.Errorf("code = %q, want %q", serr.Code, models.ErrCodeInternal)
	}
}
