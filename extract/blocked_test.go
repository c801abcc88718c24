package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/storeforge/prodscrape/engine"
)

func TestExtract_CaptchaFormIsBlocked(t *testing.T) {
	html := `<html><head><title>Amazon.com</title></head><body>
<form method="get" action="/errors/validateCaptcha">
<input type="text" id="captchacharacters">
</form></body></html>`

	s := &AmazonStrategy{}
	_, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://www.amazon.com/dp/B000"})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
	var be *BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("err = %T, want *BlockedError", err)
	}
}

func TestExtract_ChallengeTitleIsBlocked(t *testing.T) {
	html := `<html><head><title>Just a moment...</title></head>
<body><p>Checking your browser before accessing shop.example.com.</p></body></html>`

	s := &GenericStrategy{}
	_, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://shop.example.com/p/1"})
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("err = %v, want ErrBlocked", err)
	}
}

func TestExtract_ShortPageWithChallengePhraseIsBlocked(t *testing.T) {
	html := `<html><head><title>shop.example.com</title></head>
<body><p>Please verify you are a human to continue.</p></body></html>`

	s := &GenericStrategy{}
	_, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://shop.example.com/p/1"})
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("err = %v, want ErrBlocked", err)
	}
}

func TestExtract_LongProductPageMentioningCaptchaIsNotBlocked(t *testing.T) {
	// A review quoting a challenge phrase must not trip detection once the
	// page is past the phrase-scan size limit.
	var b strings.Builder
	b.WriteString(`<html><head><title>Garden Hose 50ft</title></head><body>`)
	b.WriteString(`<h1 class="product-title">Garden Hose 50ft</h1>`)
	b.WriteString(`<div class="price">$32.00</div>`)
	b.WriteString(`<p>Review: the site asked me to verify you are a human once, hose is great though.</p>`)
	for b.Len() <= blockTextScanLimit {
		b.WriteString(`<p>Durable, kink resistant, and frost proof down to -10C.</p>`)
	}
	b.WriteString(`</body></html>`)

	s := &GenericStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: b.String(), FinalURL: "https://shop.example.com/p/hose"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Title != "Garden Hose 50ft" {
		t.Errorf("title = %q", raw.Title)
	}
}
