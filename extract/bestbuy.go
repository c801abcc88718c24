package extract

import (
	"github.com/andybalholm/cascadia"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// Best Buy hydrates pricing client-side, so this strategy expects
// browser-fetched HTML. JSON-LD is reliable there and tried first.
var bbyTitle = []cascadia.Selector{
	sel(`.sku-title h1`),
	sel(`h1.heading-5`),
	sel(`h1`),
}

var bbyPrice = []cascadia.Selector{
	sel(`.priceView-hero-price span[aria-hidden="true"]`),
	sel(`.priceView-customer-price span`),
	sel(`.pricing-price__range`),
}

var bbyDescription = []cascadia.Selector{
	sel(`.product-description`),
	sel(`[data-testid="product-description"]`),
	sel(`.long-description-container`),
	sel(`.product-data-value`),
}

var bbyImages = []cascadia.Selector{
	sel(`.primary-image img`),
	sel(`.media-gallery img`),
	sel(`.carousel-image img`),
	sel(`img.primary-image`),
}

var bbyFeatures = []cascadia.Selector{
	sel(`.feature-list .feature`),
	sel(`.features-list li`),
}

var (
	bbySpecRow = sel(`.specs-table .row, .spec-row`)
	bbySpecKey = sel(`.row-title, .spec-title`)
	bbySpecVal = sel(`.row-value, .spec-value`)

	bbyVariantGroup = sel(`.variation-group, [data-testid="variation"]`)
	bbyVariantLabel = sel(`.variation-label, legend`)
	bbyVariantItem  = sel(`.variation-button, li button`)
)

type BestBuyStrategy struct{}

func (s *BestBuyStrategy) Platform() models.Platform { return models.PlatformBestBuy }

func (s *BestBuyStrategy) Extract(res *engine.FetchResult) (*models.RawProductFields, error) {
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
		raw.Title = firstText(doc, bbyTitle, plausibleTitle)
	}
	if raw.PriceText == "" {
		raw.PriceText = firstText(doc, bbyPrice, plausiblePriceText)
	}
	raw.DescriptionHTML = firstHTML(doc, bbyDescription)
	if raw.DescriptionHTML == "" {
		raw.DescriptionHTML = sd.Description
	}
	if len(raw.ImageURLs) == 0 {
		raw.ImageURLs = collectImages(doc, bbyImages, 0)
	}
	raw.Features = featureList(doc, bbyFeatures)
	raw.Specs = specPairs(doc, bbySpecRow, bbySpecKey, bbySpecVal)
	raw.Variants = swatchVariants(doc, bbyVariantGroup, bbyVariantLabel, bbyVariantItem)
	if brand, ok := raw.Specs["Brand"]; ok && raw.Brand == "" {
		raw.Brand = brand
	}
	return raw, nil
}
