package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// Amazon selectors, newest page layout first. The .a-offscreen span inside
// .a-price carries the full formatted price even when the visible markup
// splits whole and fraction.
var amzTitle = []cascadia.Selector{
	sel(`#productTitle`),
	sel(`#title span`),
	sel(`h1`),
}

var amzPrice = []cascadia.Selector{
	sel(`#corePriceDisplay_desktop_feature_div .a-price.apexPriceToPay .a-offscreen`),
	sel(`.a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen`),
	sel(`#corePrice_feature_div .a-price .a-offscreen`),
	sel(`#priceblock_dealprice`),
	sel(`#priceblock_ourprice`),
	sel(`.a-price .a-offscreen`),
}

var amzDescription = []cascadia.Selector{
	sel(`#productDescription`),
	sel(`[data-feature-name="productDescription"]`),
	sel(`#feature-bullets ul`),
}

var amzImages = []cascadia.Selector{
	sel(`#landingImage`),
	sel(`#imgTagWrapperId img`),
	sel(`#altImages img`),
	sel(`.image.item img`),
}

var amzFeatures = []cascadia.Selector{
	sel(`#feature-bullets li span.a-list-item`),
	sel(`#feature-bullets li span`),
}

var (
	amzSpecRow1 = sel(`#productDetails_techSpec_section_1 tr`)
	amzSpecRow2 = sel(`#productDetails_detailBullets_sections1 tr`)
	amzSpecKey  = sel(`th`)
	amzSpecVal  = sel(`td`)

	amzTwisterGroup = sel(`#twister .a-row[id^="variation_"], [id^="variation_"]`)
	amzTwisterLabel = sel(`label, .a-form-label`)
	amzTwisterItem  = sel(`li .twister-plus-buying-options-price-data, li img[alt], select option, li span.a-size-base`)

	amzBrand   = sel(`#bylineInfo`)
	amzRating  = sel(`#acrPopover .a-icon-alt, span[data-hook="rating-out-of-text"]`)
	amzReviews = sel(`#acrCustomerReviewText`)
)

type AmazonStrategy struct{}

func (s *AmazonStrategy) Platform() models.Platform { return models.PlatformAmazon }

func (s *AmazonStrategy) Extract(res *engine.FetchResult) (*models.RawProductFields, error) {
	doc, err := parseDoc(res)
	if err != nil {
		return nil, err
	}

	raw := &models.RawProductFields{
		Title:     firstText(doc, amzTitle, plausibleTitle),
		PriceText: firstText(doc, amzPrice, plausiblePriceText),
	}
	if raw.PriceText == "" {
		raw.PriceText = amzSplitPrice(doc)
	}
	raw.DescriptionHTML = firstHTML(doc, amzDescription)
	raw.ImageURLs = collectImages(doc, amzImages, 0)
	raw.Features = featureList(doc, amzFeatures)

	raw.Specs = specPairs(doc, amzSpecRow1, amzSpecKey, amzSpecVal)
	if raw.Specs == nil {
		raw.Specs = specPairs(doc, amzSpecRow2, amzSpecKey, amzSpecVal)
	}
	raw.Variants = swatchVariants(doc, amzTwisterGroup, amzTwisterLabel, amzTwisterItem)
	if len(raw.Variants) == 0 {
		raw.Variants = selectVariants(doc)
	}

	raw.Brand = amzBrandName(doc)
	raw.RatingText = collapseSpace(doc.FindMatcher(amzRating).First().Text())
	raw.ReviewsCountText = collapseSpace(doc.FindMatcher(amzReviews).First().Text())

	if raw.Title == "" || raw.PriceText == "" {
		sd := structuredFrom(doc)
		if raw.Title == "" {
			raw.Title = sd.Title
		}
		if raw.PriceText == "" {
			raw.PriceText = sd.PriceText
		}
		if len(raw.ImageURLs) == 0 {
			raw.ImageURLs = sd.Images
		}
	}
	return raw, nil
}

// amzSplitPrice reassembles prices rendered as separate whole and fraction
// spans, as the Indian and some mobile layouts do.
var (
	amzPriceWhole    = sel(`.a-price-whole`)
	amzPriceFraction = sel(`.a-price-fraction`)
	amzPriceSymbol   = sel(`.a-price-symbol`)
)

func amzSplitPrice(doc *goquery.Document) string {
	whole := collapseSpace(doc.FindMatcher(amzPriceWhole).First().Text())
	if whole == "" {
		return ""
	}
	symbol := collapseSpace(doc.FindMatcher(amzPriceSymbol).First().Text())
	fraction := collapseSpace(doc.FindMatcher(amzPriceFraction).First().Text())
	price := symbol + strings.TrimSuffix(whole, ".")
	if fraction != "" {
		price += "." + fraction
	}
	if !plausiblePriceText(price) {
		return ""
	}
	return price
}

// amzBrandName strips the "Visit the X Store" / "Brand: X" wrappers off the
// byline.
func amzBrandName(doc *goquery.Document) string {
	byline := collapseSpace(doc.FindMatcher(amzBrand).First().Text())
	byline = strings.TrimPrefix(byline, "Visit the ")
	byline = strings.TrimSuffix(byline, " Store")
	byline = strings.TrimPrefix(byline, "Brand: ")
	return byline
}
