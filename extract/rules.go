// Package extract holds the per-platform extraction strategies. Each
// strategy maps one fetched page to raw product fields using ordered lists
// of candidate rules per field: the first rule producing a plausible value
// wins. Strategies perform no network I/O.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// sel pre-compiles a CSS selector at package init. cascadia.Selector
// satisfies goquery.Matcher, so candidates pay the parse cost once.
func sel(css string) cascadia.Selector {
	return cascadia.MustCompile(css)
}

// imgAttrs are the attributes lazy-loading markups stash image URLs in,
// in priority order.
var imgAttrs = []string{"src", "data-src", "data-lazy-src", "data-old-src", "data-image"}

// firstText returns the first candidate whose trimmed text passes the
// plausibility check. Candidates are evaluated short-circuit, in order.
func firstText(doc *goquery.Document, candidates []cascadia.Selector, plausible func(string) bool) string {
	for _, c := range candidates {
		text := collapseSpace(doc.FindMatcher(c).First().Text())
		if text != "" && (plausible == nil || plausible(text)) {
			return text
		}
	}
	return ""
}

// firstHTML returns the inner HTML of the first matching candidate.
func firstHTML(doc *goquery.Document, candidates []cascadia.Selector) string {
	for _, c := range candidates {
		s := doc.FindMatcher(c).First()
		if s.Length() == 0 {
			continue
		}
		if h, err := s.Html(); err == nil && strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}

// collectImages gathers plausible image URLs from the candidate selectors in
// document order, preserving first-seen order and skipping duplicates.
// Resolution to absolute URLs happens later in the normalizer.
func collectImages(doc *goquery.Document, candidates []cascadia.Selector, limit int) []string {
	var urls []string
	seen := make(map[string]struct{})

	for _, c := range candidates {
		doc.FindMatcher(c).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src := imageSrc(s)
			if src == "" || !plausibleImageURL(src) {
				return true
			}
			if _, dup := seen[src]; dup {
				return true
			}
			seen[src] = struct{}{}
			urls = append(urls, src)
			return limit <= 0 || len(urls) < limit
		})
		if limit > 0 && len(urls) >= limit {
			break
		}
	}
	return urls
}

// imageSrc pulls the best URL attribute off an <img>-like selection.
func imageSrc(s *goquery.Selection) string {
	for _, attr := range imgAttrs {
		if v, ok := s.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	// srcset: take the first entry's URL.
	if v, ok := s.Attr("srcset"); ok {
		if first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0]); first != "" {
			return strings.Fields(first)[0]
		}
	}
	return ""
}

// collapseSpace trims text and folds internal whitespace runs to one space.
var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// ── Plausibility checks ─────────────────────────────────────────────────

// plausibleTitle bounds the title to something a product name could be.
func plausibleTitle(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= 3 && n <= 300
}

// priceText matches an amount with a currency marker, in either order:
// "US $12.99", "$1,299.00", "24,99 €", "24.50 EUR".
var priceText = regexp.MustCompile(
	`(?:(?:US|C|A|NZ|HK)?\s?[$€£¥₹]|USD|EUR|GBP|JPY|CAD|AUD|INR|RUB|Rs\.?)\s*\d[\d.,\s]*` +
		`|\d[\d.,]*\s*(?:[$€£¥₹]|USD|EUR|GBP|JPY|CAD|AUD|INR)`)

// plausiblePriceText accepts text that contains a currency-qualified amount.
func plausiblePriceText(s string) bool {
	return priceText.MatchString(s)
}

// imageExtensions recognised in URL paths (query strings ignored).
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

// imageCDNHosts are product-image CDNs whose URLs often carry no extension.
var imageCDNHosts = []string{
	"alicdn.com",
	"media-amazon.com",
	"ssl-images-amazon.com",
	"ebayimg.com",
	"bbystatic.com",
	"shopifycdn.com",
	"cdn.shopify.com",
	"cloudfront.net",
	"imgix.net",
}

// plausibleImageURL accepts http(s) or scheme-relative or site-relative URLs
// with a recognised image extension, or absolute URLs on a known image CDN.
func plausibleImageURL(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		return false
	}

	path := lower
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "//") {
		for _, host := range imageCDNHosts {
			if strings.Contains(lower, host+"/") {
				return true
			}
		}
	}
	return false
}

// specPairs collects key→value rows (table rows, dt/dd lists, property
// lists) into a spec map. keySel/valSel are evaluated inside each row.
func specPairs(doc *goquery.Document, rowSel, keySel, valSel cascadia.Selector) map[string]string {
	specs := make(map[string]string)
	doc.FindMatcher(rowSel).Each(func(_ int, row *goquery.Selection) {
		key := collapseSpace(row.FindMatcher(keySel).First().Text())
		val := collapseSpace(row.FindMatcher(valSel).First().Text())
		key = strings.TrimSuffix(key, ":")
		if key == "" || val == "" {
			return
		}
		if _, dup := specs[key]; !dup {
			specs[key] = val
		}
	})
	if len(specs) == 0 {
		return nil
	}
	return specs
}

// featureList collects short bullet-style feature lines, bounded the way the
// feature blocks on retail pages actually behave (10..200 chars, max 10).
func featureList(doc *goquery.Document, candidates []cascadia.Selector) []string {
	const maxFeatures = 10
	var features []string
	seen := make(map[string]struct{})

	for _, c := range candidates {
		doc.FindMatcher(c).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := collapseSpace(s.Text())
			if len(text) < 10 || len(text) > 200 {
				return true
			}
			if _, dup := seen[text]; dup {
				return true
			}
			seen[text] = struct{}{}
			features = append(features, text)
			return len(features) < maxFeatures
		})
		if len(features) >= maxFeatures {
			break
		}
	}
	return features
}
