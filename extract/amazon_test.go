package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/storeforge/prodscrape/engine"
)

func TestAmazonStrategy_DesktopLayout(t *testing.T) {
	html := `<html><head><title>Amazon.com: Wireless Earbuds</title></head><body>
<span id="productTitle"> Wireless Earbuds with Charging Case </span>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="a-price apexPriceToPay"><span class="a-offscreen">$39.99</span></span>
</div>
<a id="bylineInfo" href="/stores/soundco">Visit the SoundCo Store</a>
<div id="feature-bullets"><ul>
  <li><span class="a-list-item">Active noise cancellation for immersive sound</span></li>
  <li><span class="a-list-item">Up to 30 hours battery life with the charging case</span></li>
</ul></div>
<img id="landingImage" src="https://m.media-amazon.com/images/I/earbuds.jpg">
<table id="productDetails_techSpec_section_1">
  <tr><th>Battery Life</th><td>30 hours</td></tr>
  <tr><th>Connectivity</th><td>Bluetooth 5.3</td></tr>
</table>
<span id="acrPopover"><span class="a-icon-alt">4.6 out of 5 stars</span></span>
<span id="acrCustomerReviewText">12,345 ratings</span>
</body></html>`

	s := &AmazonStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://www.amazon.com/dp/B0TEST"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw.Title != "Wireless Earbuds with Charging Case" {
		t.Errorf("title = %q", raw.Title)
	}
	if raw.PriceText != "$39.99" {
		t.Errorf("price text = %q", raw.PriceText)
	}
	if raw.Brand != "SoundCo" {
		t.Errorf("brand = %q", raw.Brand)
	}
	if !reflect.DeepEqual(raw.ImageURLs, []string{"https://m.media-amazon.com/images/I/earbuds.jpg"}) {
		t.Errorf("images = %v", raw.ImageURLs)
	}
	if len(raw.Features) != 2 || !strings.Contains(raw.Features[0], "noise cancellation") {
		t.Errorf("features = %v", raw.Features)
	}
	want := map[string]string{"Battery Life": "30 hours", "Connectivity": "Bluetooth 5.3"}
	if !reflect.DeepEqual(raw.Specs, want) {
		t.Errorf("specs = %v, want %v", raw.Specs, want)
	}
	if raw.RatingText != "4.6 out of 5 stars" {
		t.Errorf("rating text = %q", raw.RatingText)
	}
	if raw.ReviewsCountText != "12,345 ratings" {
		t.Errorf("reviews text = %q", raw.ReviewsCountText)
	}
}

func TestAmazonStrategy_SplitPriceSpans(t *testing.T) {
	html := `<html><head><title>Amazon.in: Desk Lamp</title></head><body>
<span id="productTitle">Adjustable LED Desk Lamp</span>
<span class="a-price">
  <span class="a-price-symbol">$</span><span class="a-price-whole">1,299.</span><span class="a-price-fraction">95</span>
</span>
</body></html>`

	s := &AmazonStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://www.amazon.com/dp/B0LAMP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.PriceText != "$1,299.95" {
		t.Errorf("price text = %q, want reassembled split price", raw.PriceText)
	}
}

func TestAmazonStrategy_StructuredDataFallback(t *testing.T) {
	html := `<html><head><title>Amazon.com: Mystery Item</title>
<script type="application/ld+json">
{"@type":"Product","name":"Mystery Item Deluxe","offers":{"price":"18.50","priceCurrency":"USD"}}
</script></head><body><div id="dp">nothing recognisable here</div></body></html>`

	s := &AmazonStrategy{}
	raw, err := s.Extract(&engine.FetchResult{HTML: html, FinalURL: "https://www.amazon.com/dp/B0MYST"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Title != "Mystery Item Deluxe" {
		t.Errorf("title = %q", raw.Title)
	}
	if raw.PriceText != "18.50 USD" {
		t.Errorf("price text = %q", raw.PriceText)
	}
}
