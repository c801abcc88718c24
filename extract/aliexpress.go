package extract

import (
	"github.com/andybalholm/cascadia"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// AliExpress renders product data client-side; these selectors target the
// hydrated DOM, so this strategy expects browser-fetched HTML. Structured
// data is still tried first since some regional variants ship JSON-LD.
var aliTitle = []cascadia.Selector{
	sel(`h1[data-pl="product-title"]`),
	sel(`.product-title-text`),
	sel(`h1`),
}

var aliPrice = []cascadia.Selector{
	sel(`[data-pl="product-price"]`),
	sel(`.product-price-current`),
	sel(`.price-current`),
	sel(`.uniform-banner-box-price`),
}

var aliDescription = []cascadia.Selector{
	sel(`[data-pl="product-description"]`),
	sel(`.product-description`),
	sel(`.product-overview`),
}

var aliImages = []cascadia.Selector{
	sel(`.images-view-item img`),
	sel(`.image-view-magnifier-wrap img`),
	sel(`.product-image img`),
}

var aliFeatures = []cascadia.Selector{
	sel(`.product-property li`),
	sel(`.product-feature li`),
}

var (
	aliSpecRow = sel(`.specification li, .product-prop`)
	aliSpecKey = sel(`.title, .propery-title, dt`)
	aliSpecVal = sel(`.desc, .propery-des, dd`)

	aliSkuGroup = sel(`.sku-property, [data-sku-col]`)
	aliSkuLabel = sel(`.sku-title, .sku-property-name`)
	aliSkuItem  = sel(`.sku-property-item, .sku-property-text`)

	aliStore = sel(`.store-name, a[data-pl="store-name"]`)
)

type AliExpressStrategy struct{}

func (s *AliExpressStrategy) Platform() models.Platform { return models.PlatformAliExpress }

func (s *AliExpressStrategy) Extract(res *engine.FetchResult) (*models.RawProductFields, error) {
	doc, err := parseDoc(res)
	if err != nil {
		return nil, err
	}
	sd := structuredFrom(doc)

	raw := &models.RawProductFields{
		Title:     sd.Title,
		PriceText: sd.PriceText,
		ImageURLs: sd.Images,
		Brand:     sd.Brand,
		Category:  sd.Category,
	}
	if raw.Title == "" {
		raw.Title = firstText(doc, aliTitle, plausibleTitle)
	}
	if raw.PriceText == "" {
		raw.PriceText = firstText(doc, aliPrice, plausiblePriceText)
	}
	raw.DescriptionHTML = firstHTML(doc, aliDescription)
	if raw.DescriptionHTML == "" {
		raw.DescriptionHTML = sd.Description
	}
	if len(raw.ImageURLs) == 0 {
		raw.ImageURLs = collectImages(doc, aliImages, 0)
	}
	raw.Features = featureList(doc, aliFeatures)
	raw.Specs = specPairs(doc, aliSpecRow, aliSpecKey, aliSpecVal)
	raw.Variants = swatchVariants(doc, aliSkuGroup, aliSkuLabel, aliSkuItem)
	if raw.Brand == "" {
		raw.Brand = collapseSpace(doc.FindMatcher(aliStore).First().Text())
	}
	raw.RatingText = sd.RatingText
	raw.ReviewsCountText = sd.ReviewsText
	return raw, nil
}
