package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldProduct is the subset of a schema.org Product node the extractor reads.
// Fields that sites emit inconsistently (string vs array vs object) are
// decoded as json.RawMessage and coerced afterwards.
type ldProduct struct {
	Type        json.RawMessage `json:"@type"`
	Graph       []ldProduct     `json:"@graph"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
	Brand       json.RawMessage `json:"brand"`
	Category    string          `json:"category"`
	Offers      json.RawMessage `json:"offers"`
	Rating      *ldRating       `json:"aggregateRating"`
}

type ldRating struct {
	RatingValue json.RawMessage `json:"ratingValue"`
	ReviewCount json.RawMessage `json:"reviewCount"`
	RatingCount json.RawMessage `json:"ratingCount"`
}

type ldOffer struct {
	Price         json.RawMessage `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	Availability  string          `json:"availability"`
	Name          string          `json:"name"`
}

// structuredData holds what the page declares about itself via JSON-LD,
// Open Graph, and microdata, already flattened to strings.
type structuredData struct {
	Title       string
	Description string
	PriceText   string
	Images      []string
	Brand       string
	Category    string
	RatingText  string
	ReviewsText string
}

var (
	jsonLDSel    = sel(`script[type="application/ld+json"]`)
	microNameSel = sel(`[itemprop="name"]`)
	microPrice   = sel(`[itemprop="price"]`)
	microImage   = sel(`[itemprop="image"]`)
)

// structuredFrom reads structured data in precedence order: JSON-LD first,
// Open Graph meta second, microdata last. Later sources only fill gaps.
func structuredFrom(doc *goquery.Document) structuredData {
	var sd structuredData
	fromJSONLD(doc, &sd)
	fromOpenGraph(doc, &sd)
	fromMicrodata(doc, &sd)
	return sd
}

func fromJSONLD(doc *goquery.Document, sd *structuredData) {
	doc.FindMatcher(jsonLDSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		for _, node := range decodeLDNodes(raw) {
			if !isLDProduct(node.Type) {
				continue
			}
			applyLDProduct(node, sd)
			if sd.Title != "" && sd.PriceText != "" {
				return false
			}
		}
		return true
	})
}

// decodeLDNodes handles the three shapes scripts come in: a single object,
// an array of objects, or an object with an @graph array.
func decodeLDNodes(raw string) []ldProduct {
	var one ldProduct
	if err := json.Unmarshal([]byte(raw), &one); err == nil {
		if len(one.Graph) > 0 {
			return one.Graph
		}
		return []ldProduct{one}
	}
	var many []ldProduct
	if err := json.Unmarshal([]byte(raw), &many); err == nil {
		return many
	}
	return nil
}

func isLDProduct(t json.RawMessage) bool {
	var single string
	if json.Unmarshal(t, &single) == nil {
		return strings.EqualFold(single, "Product")
	}
	var multi []string
	if json.Unmarshal(t, &multi) == nil {
		for _, v := range multi {
			if strings.EqualFold(v, "Product") {
				return true
			}
		}
	}
	return false
}

func applyLDProduct(p ldProduct, sd *structuredData) {
	if sd.Title == "" {
		sd.Title = collapseSpace(p.Name)
	}
	if sd.Description == "" {
		sd.Description = strings.TrimSpace(p.Description)
	}
	if len(sd.Images) == 0 {
		sd.Images = coerceStrings(p.Image)
	}
	if sd.Brand == "" {
		sd.Brand = ldBrandName(p.Brand)
	}
	if sd.Category == "" {
		sd.Category = collapseSpace(p.Category)
	}
	if sd.PriceText == "" {
		if price, currency := ldOfferPrice(p.Offers); price != "" {
			sd.PriceText = strings.TrimSpace(price + " " + currency)
		}
	}
	if p.Rating != nil {
		if sd.RatingText == "" {
			sd.RatingText = rawScalar(p.Rating.RatingValue)
		}
		if sd.ReviewsText == "" {
			sd.ReviewsText = rawScalar(p.Rating.ReviewCount)
			if sd.ReviewsText == "" {
				sd.ReviewsText = rawScalar(p.Rating.RatingCount)
			}
		}
	}
}

// ldOfferPrice reads offers in their three shapes: a single Offer, a list
// of Offers, or an AggregateOffer carrying lowPrice.
func ldOfferPrice(raw json.RawMessage) (price, currency string) {
	if len(raw) == 0 {
		return "", ""
	}
	var offer ldOffer
	if json.Unmarshal(raw, &offer) == nil {
		if p := rawScalar(offer.Price); p != "" {
			return p, offer.PriceCurrency
		}
		if p := rawScalar(offer.LowPrice); p != "" {
			return p, offer.PriceCurrency
		}
	}
	var offers []ldOffer
	if json.Unmarshal(raw, &offers) == nil {
		for _, o := range offers {
			if p := rawScalar(o.Price); p != "" {
				return p, o.PriceCurrency
			}
		}
	}
	return "", ""
}

// ldVariants reads named offers out of an offer list; many sites express
// simple variants this way.
func ldVariants(doc *goquery.Document) []namedOffer {
	var out []namedOffer
	doc.FindMatcher(jsonLDSel).Each(func(_ int, s *goquery.Selection) {
		for _, node := range decodeLDNodes(strings.TrimSpace(s.Text())) {
			if !isLDProduct(node.Type) || len(node.Offers) == 0 {
				continue
			}
			var offers []ldOffer
			if json.Unmarshal(node.Offers, &offers) != nil {
				continue
			}
			for _, o := range offers {
				if o.Name == "" {
					continue
				}
				out = append(out, namedOffer{
					Name:         collapseSpace(o.Name),
					PriceText:    strings.TrimSpace(rawScalar(o.Price) + " " + o.PriceCurrency),
					Availability: o.Availability,
				})
			}
		}
	})
	return out
}

type namedOffer struct {
	Name         string
	PriceText    string
	Availability string
}

func fromOpenGraph(doc *goquery.Document, sd *structuredData) {
	if sd.Title == "" {
		sd.Title = metaContent(doc, `meta[property="og:title"]`)
	}
	if sd.Description == "" {
		sd.Description = metaContent(doc, `meta[property="og:description"]`)
		if sd.Description == "" {
			sd.Description = metaContent(doc, `meta[name="description"]`)
		}
	}
	if len(sd.Images) == 0 {
		doc.FindMatcher(ogImageSel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
				sd.Images = append(sd.Images, strings.TrimSpace(v))
			}
		})
	}
	if sd.PriceText == "" {
		amount := metaContent(doc, `meta[property="product:price:amount"]`)
		if amount == "" {
			amount = metaContent(doc, `meta[property="og:price:amount"]`)
		}
		if amount != "" {
			currency := metaContent(doc, `meta[property="product:price:currency"]`)
			if currency == "" {
				currency = metaContent(doc, `meta[property="og:price:currency"]`)
			}
			sd.PriceText = strings.TrimSpace(amount + " " + currency)
		}
	}
	if sd.Brand == "" {
		sd.Brand = metaContent(doc, `meta[property="product:brand"]`)
	}
}

var ogImageSel = sel(`meta[property="og:image"]`)

func fromMicrodata(doc *goquery.Document, sd *structuredData) {
	if sd.Title == "" {
		sd.Title = collapseSpace(doc.FindMatcher(microNameSel).First().Text())
	}
	if sd.PriceText == "" {
		p := doc.FindMatcher(microPrice).First()
		if v, ok := p.Attr("content"); ok && strings.TrimSpace(v) != "" {
			sd.PriceText = strings.TrimSpace(v)
		} else {
			sd.PriceText = collapseSpace(p.Text())
		}
	}
	if len(sd.Images) == 0 {
		doc.FindMatcher(microImage).Each(func(_ int, s *goquery.Selection) {
			src := imageSrc(s)
			if src == "" {
				if v, ok := s.Attr("content"); ok {
					src = strings.TrimSpace(v)
				}
			}
			if src != "" {
				sd.Images = append(sd.Images, src)
			}
		})
	}
}

// metaContent compiles ad hoc; meta lookups are too varied to pre-compile.
func metaContent(doc *goquery.Document, css string) string {
	v, _ := doc.Find(css).First().Attr("content")
	return strings.TrimSpace(v)
}

// rawScalar renders a JSON scalar that may be a string or a number.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var f json.Number
	if json.Unmarshal(raw, &f) == nil {
		return f.String()
	}
	return ""
}

func coerceStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if json.Unmarshal(raw, &one) == nil {
		if one = strings.TrimSpace(one); one != "" {
			return []string{one}
		}
		return nil
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		var out []string
		for _, v := range many {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	// {"@type":"ImageObject","url":"..."} and lists of it.
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil && strings.TrimSpace(obj.URL) != "" {
		return []string{strings.TrimSpace(obj.URL)}
	}
	var objs []struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &objs) == nil {
		var out []string
		for _, o := range objs {
			if u := strings.TrimSpace(o.URL); u != "" {
				out = append(out, u)
			}
		}
		return out
	}
	return nil
}

func ldBrandName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return collapseSpace(s)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return collapseSpace(obj.Name)
	}
	return ""
}
