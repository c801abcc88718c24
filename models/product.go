package models

import "time"

// Platform identifies which extraction strategy applies to a product URL.
type Platform string

const (
	PlatformAliExpress Platform = "aliexpress"
	PlatformAmazon     Platform = "amazon"
	PlatformEBay       Platform = "ebay"
	PlatformBestBuy    Platform = "bestbuy"
	PlatformGeneric    Platform = "generic"
)

// Platforms lists every supported platform tag. The set is closed: adding a
// platform means adding one extraction strategy and one entry here.
var Platforms = []Platform{
	PlatformAliExpress,
	PlatformAmazon,
	PlatformEBay,
	PlatformBestBuy,
	PlatformGeneric,
}

// Completeness classifies a successful scrape outcome.
type Completeness string

const (
	// Complete means every required field was extracted.
	Complete Completeness = "complete"
	// Partial means the product is usable but at least one required field
	// is missing. Partial results are never upgraded to Complete.
	Partial Completeness = "partial"
)

// Required field names reported in Product.FieldsMissing.
const (
	FieldTitle = "title"
	FieldPrice = "price"
)

// Variant is one purchasable combination of product attributes
// (e.g. {"color": "black", "size": "M"}) with an optional price override.
type Variant struct {
	// Attributes maps attribute name to the selected value.
	Attributes map[string]string `json:"attributes"`

	// PriceAmount is the variant price in minor units, overriding the
	// product price. Nil when the variant sells at the base price.
	PriceAmount *int64 `json:"price_amount,omitempty"`

	// Available reports whether the combination is in stock.
	Available bool `json:"available"`
}

// Product is the canonical, platform-independent product record consumed by
// all downstream components (content generation, image enhancement, storage).
// It is constructed once per request by the normalizer and owned by the
// caller afterwards.
type Product struct {
	ID             string   `json:"id"`
	SourceURL      string   `json:"source_url"`
	SourcePlatform Platform `json:"source_platform"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// PriceAmount is the price in minor units of Currency (cents for USD).
	// Nil when no plausible price was found. Never negative.
	PriceAmount *int64 `json:"price_amount,omitempty"`
	Currency    string `json:"currency,omitempty"`

	// Images holds absolute, deduplicated URLs in original discovery order,
	// capped at the request's image limit.
	Images []string `json:"images"`

	Variants       []Variant         `json:"variants,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`

	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	Features     []string `json:"features,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty"`

	ScrapedAt time.Time `json:"scraped_at"`

	// FieldsMissing lists required fields absent after normalization.
	FieldsMissing []string `json:"fields_missing,omitempty"`
}

// Completeness derives the outcome classification from FieldsMissing.
func (p *Product) Completeness() Completeness {
	if len(p.FieldsMissing) == 0 {
		return Complete
	}
	return Partial
}

// RawVariant is a variant row before normalization: platform strategies emit
// these from embedded structured data or DOM option elements.
type RawVariant struct {
	Attributes map[string]string
	PriceText  string
	Available  bool
}

// RawProductFields holds the per-field raw strings a strategy extracted from
// one fetched page. All fields are optional; missing optional fields are not
// an error. The struct is transient and strategy-local.
type RawProductFields struct {
	Title           string
	DescriptionHTML string
	PriceText       string
	ImageURLs       []string
	Specs           map[string]string
	Variants        []RawVariant

	Brand            string
	Category         string
	Features         []string
	RatingText       string
	ReviewsCountText string
}

// SeverelyDegraded reports whether the extraction produced neither a title
// nor a price — the trigger for re-running with the generic strategy.
func (r *RawProductFields) SeverelyDegraded() bool {
	return r.Title == "" && r.PriceText == ""
}
