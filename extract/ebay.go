package extract

import (
	"github.com/andybalholm/cascadia"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// eBay listing pages are server-rendered, so the plain HTTP transport is
// usually enough. Current layout first, legacy item-page IDs after.
var ebayTitle = []cascadia.Selector{
	sel(`h1.x-item-title__mainTitle span`),
	sel(`#x-title-label-lbl`),
	sel(`h1#itemTitle`),
	sel(`h1`),
}

var ebayPrice = []cascadia.Selector{
	sel(`.x-price-primary span.ux-textspans`),
	sel(`#prcIsum`),
	sel(`#mm-saleDscPrc`),
	sel(`span.notranslate`),
}

var ebayDescription = []cascadia.Selector{
	sel(`#desc_div`),
	sel(`.x-item-description`),
	sel(`div.product-description`),
}

var ebayImages = []cascadia.Selector{
	sel(`.ux-image-carousel-item img`),
	sel(`#icImg`),
	sel(`img.img`),
}

var (
	ebaySpecRow = sel(`.ux-layout-section-evo__row .ux-labels-values`)
	ebaySpecKey = sel(`.ux-labels-values__labels`)
	ebaySpecVal = sel(`.ux-labels-values__values`)

	ebaySeller = sel(`.x-sellercard-atf__info__about-seller a span`)
)

type EbayStrategy struct{}

func (s *EbayStrategy) Platform() models.Platform { return models.PlatformEBay }

func (s *EbayStrategy) Extract(res *engine.FetchResult) (*models.RawProductFields, error) {
	doc, err := parseDoc(res)
	if err != nil {
		return nil, err
	}

	raw := &models.RawProductFields{
		Title:     firstText(doc, ebayTitle, plausibleTitle),
		PriceText: firstText(doc, ebayPrice, plausiblePriceText),
	}
	raw.DescriptionHTML = firstHTML(doc, ebayDescription)
	raw.ImageURLs = collectImages(doc, ebayImages, 0)
	raw.Specs = specPairs(doc, ebaySpecRow, ebaySpecKey, ebaySpecVal)

	// Listing variations are plain selects on eBay.
	raw.Variants = selectVariants(doc)

	if brand, ok := raw.Specs["Brand"]; ok {
		raw.Brand = brand
	} else {
		raw.Brand = collapseSpace(doc.FindMatcher(ebaySeller).First().Text())
	}

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
		if raw.DescriptionHTML == "" {
			raw.DescriptionHTML = sd.Description
		}
	}
	return raw, nil
}
