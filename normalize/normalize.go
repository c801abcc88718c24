package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/storeforge/prodscrape/models"
)

// Input carries everything the normalizer needs from earlier pipeline
// stages. SourceURL is the normalized request URL; FinalURL is where the
// fetch actually landed and is the base for resolving relative image URLs.
type Input struct {
	Raw       *models.RawProductFields
	Platform  models.Platform
	SourceURL string
	FinalURL  string
	MaxImages int
}

// ErrNothingExtracted is returned only when the normalizer is called with no
// raw fields at all, which indicates a pipeline bug rather than a bad page.
var ErrNothingExtracted = errors.New("normalize called without extracted fields")

const (
	maxTitleLength = 300
	maxSpecEntries = 100
)

// Normalize converts raw extracted fields into the canonical product. It is
// pure aside from the ScrapedAt timestamp: the same input yields the same
// product. A missing optional field is not an error; missing required
// fields are recorded in FieldsMissing instead.
func Normalize(in Input) (*models.Product, error) {
	raw := in.Raw
	if raw == nil {
		return nil, ErrNothingExtracted
	}

	p := &models.Product{
		ID:             productID(in.SourceURL),
		SourceURL:      in.SourceURL,
		SourcePlatform: in.Platform,
		Title:          normalizeTitle(raw.Title),
		Description:    NormalizeDescription(raw.DescriptionHTML, in.FinalURL),
		Images:         NormalizeImages(raw.ImageURLs, in.FinalURL, in.MaxImages),
		Brand:          strings.TrimSpace(raw.Brand),
		Category:       strings.TrimSpace(raw.Category),
		Features:       trimStrings(raw.Features),
		Specifications: capSpecs(raw.Specs),
		ScrapedAt:      time.Now().UTC(),
	}

	if amount, currency, err := ParsePrice(raw.PriceText); err == nil && amount >= 0 {
		p.PriceAmount = &amount
		p.Currency = currency
	}

	p.Variants = normalizeVariants(raw.Variants)
	p.Rating = parseRating(raw.RatingText)
	p.ReviewsCount = parseCount(raw.ReviewsCountText)

	// An empty extraction is still a Partial product, never an error: the
	// page was fetched and parsed, the fields just were not found.
	if p.Title == "" {
		p.FieldsMissing = append(p.FieldsMissing, models.FieldTitle)
	}
	if p.PriceAmount == nil {
		p.FieldsMissing = append(p.FieldsMissing, models.FieldPrice)
	}
	return p, nil
}

// productID derives a stable identifier from the normalized source URL, so
// repeat scrapes of the same product share an ID.
func productID(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:16])
}

func normalizeTitle(t string) string {
	t = strings.Join(strings.Fields(t), " ")
	if utf8.RuneCountInString(t) > maxTitleLength {
		r := []rune(t)
		t = strings.TrimSpace(string(r[:maxTitleLength]))
	}
	return t
}

// normalizeVariants parses per-variant price overrides and drops rows with
// no attributes. Variant counts are already bounded upstream.
func normalizeVariants(raw []models.RawVariant) []models.Variant {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.Variant, 0, len(raw))
	for _, rv := range raw {
		if len(rv.Attributes) == 0 {
			continue
		}
		v := models.Variant{
			Attributes: rv.Attributes,
			Available:  rv.Available,
		}
		if rv.PriceText != "" {
			if amount, _, err := ParsePrice(rv.PriceText); err == nil && amount >= 0 {
				v.PriceAmount = &amount
			}
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var ratingPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// parseRating reads "4.5 out of 5 stars", "4,5", or a bare number, clamped
// to the 0..5 scale.
func parseRating(text string) *float64 {
	m := ratingPattern.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

var countPattern = regexp.MustCompile(`\d[\d,.]*`)

// parseCount reads "1,234 ratings" or "2.1K reviews" style counts.
func parseCount(text string) *int {
	m := countPattern.FindString(text)
	if m == "" {
		return nil
	}
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(m)
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 0 {
		return nil
	}
	// "2.1K" style suffixes.
	rest := text[strings.Index(text, m)+len(m):]
	if strings.HasPrefix(strings.TrimSpace(strings.ToUpper(rest)), "K") {
		n = scaledCount(m)
	}
	return &n
}

func scaledCount(m string) int {
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return int(v * 1000)
}

func trimStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// capSpecs bounds oversized spec maps. Truncation is by sorted key so the
// same input always keeps the same subset.
func capSpecs(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	if len(in) <= maxSpecEntries {
		return in
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, maxSpecEntries)
	for _, k := range keys[:maxSpecEntries] {
		out[k] = in[k]
	}
	return out
}
