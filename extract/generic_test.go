package extract

import (
	"reflect"
	"testing"

	"github.com/storeforge/prodscrape/engine"
)

func TestGenericStrategy_ReadsJSONLD(t *testing.T) {
	html := `<html><head><title>Acme Shop</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Ceramic Mug",
 "description":"A sturdy stoneware mug that keeps coffee warm.",
 "image":["https://cdn.example.com/mug.jpg"],
 "brand":{"@type":"Brand","name":"Acme"},
 "offers":{"@type":"Offer","price":"29.99","priceCurrency":"USD"},
 "aggregateRating":{"ratingValue":4.2,"reviewCount":87}}
</script></head><body><h1 class="page-title">Welcome</h1></body></html>`

	s := &GenericStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://shop.example.com/p/mug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw.Title != "Ceramic Mug" {
		t.Errorf("title = %q", raw.Title)
	}
	if raw.PriceText != "29.99 USD" {
		t.Errorf("price text = %q", raw.PriceText)
	}
	if !reflect.DeepEqual(raw.ImageURLs, []string{"https://cdn.example.com/mug.jpg"}) {
		t.Errorf("images = %v", raw.ImageURLs)
	}
	if raw.Brand != "Acme" {
		t.Errorf("brand = %q", raw.Brand)
	}
	if raw.RatingText != "4.2" {
		t.Errorf("rating text = %q", raw.RatingText)
	}
	if raw.ReviewsCountText != "87" {
		t.Errorf("reviews text = %q", raw.ReviewsCountText)
	}
}

func TestGenericStrategy_DOMSelectors(t *testing.T) {
	html := `<html><head><title>Acme Shop</title></head><body>
<h1 class="product-title">Walnut Desk Organizer</h1>
<div class="price-current">$24.99</div>
<div class="product-description"><p>Five compartments for pens and cables.</p></div>
<div class="gallery"><img src="https://cdn.example.com/organizer.jpg"></div>
</body></html>`

	s := &GenericStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://shop.example.com/p/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw.Title != "Walnut Desk Organizer" {
		t.Errorf("title = %q", raw.Title)
	}
	if raw.PriceText != "$24.99" {
		t.Errorf("price text = %q", raw.PriceText)
	}
	if !reflect.DeepEqual(raw.ImageURLs, []string{"https://cdn.example.com/organizer.jpg"}) {
		t.Errorf("images = %v", raw.ImageURLs)
	}
}

func TestGenericStrategy_TitleFallsBackToPageTitle(t *testing.T) {
	html := `<html><head><title>Blue Ceramic Mug – Pottery Barn</title></head>
<body><p>Handmade in small batches.</p></body></html>`

	s := &GenericStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://shop.example.com/p/2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Title != "Blue Ceramic Mug" {
		t.Errorf("title = %q, want site suffix stripped", raw.Title)
	}
}

func TestGenericStrategy_LargestBodyPriceWins(t *testing.T) {
	html := `<html><head><title>Standing Desk</title></head><body>
<p>Shipping from $4.99</p>
<p>Buy now for $149.00 today only</p>
<p>Save $5 with coupon DESK5</p>
</body></html>`

	s := &GenericStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://shop.example.com/p/3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.PriceText != "$149.00" {
		t.Errorf("price text = %q, want the largest qualified amount", raw.PriceText)
	}
}

func TestRegistry_UnknownPlatformGetsGeneric(t *testing.T) {
	r := NewRegistry()
	if s := r.For("no-such-platform"); s != r.Generic() {
		t.Errorf("got %T, want the generic strategy", s)
	}
}
