package extract

import (
	nurl "net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// GenericStrategy handles unrecognised storefronts and serves as the
// fallback when a dedicated strategy comes back severely degraded. It leans
// on structured data first, then common e-commerce markup, then page-wide
// heuristics. It never returns ErrBlocked-free garbage without trying the
// <title> fallback, so a fetchable page always yields at least a title.
type GenericStrategy struct{}

var genTitle = []cascadia.Selector{
	sel(`h1[class*="title"]`),
	sel(`h1[class*="product"]`),
	sel(`h1[class*="name"]`),
	sel(`.product-title`),
	sel(`.item-title`),
	sel(`h1`),
}

var genPrice = []cascadia.Selector{
	sel(`[data-price]`),
	sel(`[data-product-price]`),
	sel(`.price-current`),
	sel(`.current-price`),
	sel(`.product-price`),
	sel(`.price`),
	sel(`[class*="price"]`),
}

var genDescription = []cascadia.Selector{
	sel(`[class*="description"]`),
	sel(`[class*="overview"]`),
	sel(`.product-info`),
	sel(`.item-description`),
}

var genImages = []cascadia.Selector{
	sel(`[class*="product"] img`),
	sel(`[class*="gallery"] img`),
	sel(`[class*="item"] img`),
	sel(`main img`),
	sel(`img`),
}

var genFeatures = []cascadia.Selector{
	sel(`[class*="feature"] li`),
	sel(`.product-details li`),
}

const genericImageScan = 8

func (s *GenericStrategy) Platform() models.Platform { return models.PlatformGeneric }

func (s *GenericStrategy) Extract(res *engine.FetchResult) (*models.RawProductFields, error) {
	doc, err := parseDoc(res)
	if err != nil {
		return nil, err
	}
	sd := structuredFrom(doc)

	raw := &models.RawProductFields{
		Title:            sd.Title,
		PriceText:        sd.PriceText,
		ImageURLs:        sd.Images,
		Brand:            sd.Brand,
		Category:         sd.Category,
		RatingText:       sd.RatingText,
		ReviewsCountText: sd.ReviewsText,
	}

	if raw.Title == "" {
		raw.Title = firstText(doc, genTitle, plausibleTitle)
	}
	if raw.Title == "" {
		// Last resort: the document title, with the usual "| Site" suffix cut.
		raw.Title = pageTitle(doc, res)
	}

	if raw.PriceText == "" {
		raw.PriceText = firstText(doc, genPrice, plausiblePriceText)
	}
	if raw.PriceText == "" {
		raw.PriceText = largestPlausiblePrice(doc)
	}

	raw.DescriptionHTML = firstHTML(doc, genDescription)
	if raw.DescriptionHTML == "" {
		raw.DescriptionHTML = readableContent(res)
	}
	if raw.DescriptionHTML == "" {
		raw.DescriptionHTML = sd.Description
	}

	if len(raw.ImageURLs) == 0 {
		raw.ImageURLs = collectImages(doc, genImages, genericImageScan)
	}
	raw.Features = featureList(doc, genFeatures)

	if offers := ldVariants(doc); len(offers) > 0 {
		raw.Variants = offerVariants(offers)
	} else {
		raw.Variants = selectVariants(doc)
	}
	return raw, nil
}

// pageTitle returns the <title> text, trimmed of a trailing site-name
// segment when one is separated by a pipe or dash.
func pageTitle(doc *goquery.Document, res *engine.FetchResult) string {
	t := collapseSpace(doc.FindMatcher(titleSel).First().Text())
	if t == "" {
		t = collapseSpace(res.Title)
	}
	for _, sep := range []string{" | ", " – ", " - "} {
		if i := strings.LastIndex(t, sep); i > 0 {
			head := strings.TrimSpace(t[:i])
			if plausibleTitle(head) {
				return head
			}
		}
	}
	return t
}

// largestPlausiblePrice scans the body text for currency-qualified amounts
// and keeps the largest one below the sanity ceiling. Pages sprinkle small
// amounts everywhere (shipping, coupons, per-unit prices); the headline
// price is almost always the largest qualified amount.
const priceSanityCeiling = 1_000_000

func largestPlausiblePrice(doc *goquery.Document) string {
	body := doc.FindMatcher(bodySel).Text()
	if len(body) > blockTextScanLimit*5 {
		body = body[:blockTextScanLimit*5]
	}

	var best string
	var bestVal float64
	for _, m := range priceText.FindAllString(body, 200) {
		v, ok := approxAmount(m)
		if !ok || v <= 0 || v >= priceSanityCeiling {
			continue
		}
		if v > bestVal {
			bestVal = v
			best = strings.TrimSpace(m)
		}
	}
	return best
}

// approxAmount parses the numeric part of a price match closely enough for
// ordering. Exact minor-unit conversion happens in the normalizer.
func approxAmount(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	digits := strings.Trim(b.String(), ".,")
	if digits == "" {
		return 0, false
	}
	// Treat the last separator as decimal when it has 1-2 trailing digits.
	digits = strings.ReplaceAll(digits, ",", ".")
	if n := strings.Count(digits, "."); n > 1 {
		last := strings.LastIndex(digits, ".")
		digits = strings.ReplaceAll(digits[:last], ".", "") + digits[last:]
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// readableContent runs readability over the page to recover a description
// when no dedicated description block exists. Short extractions are
// discarded as boilerplate.
const minReadableLength = 50

func readableContent(res *engine.FetchResult) string {
	parsed, err := nurl.Parse(res.FinalURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(res.HTML), parsed)
	if err != nil {
		return ""
	}
	if len(strings.TrimSpace(article.TextContent)) < minReadableLength {
		return ""
	}
	return article.Content
}
