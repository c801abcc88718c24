package extract

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/storeforge/prodscrape/models"
)

const maxVariants = 50

var (
	variantSelectSel = sel(`select[name], select[id]`)
	optionSel        = sel(`option`)
)

// unavailableMarkers flag an option as out of stock when they appear in its
// label. Checked lowercase.
var unavailableMarkers = []string{
	"out of stock",
	"unavailable",
	"sold out",
	"currently unavailable",
}

// selectVariants reads <select> dropdowns into variants, one per option,
// keyed by the select's label. Placeholder options ("Select Size") and
// empty values are skipped.
func selectVariants(doc *goquery.Document) []models.RawVariant {
	var variants []models.RawVariant

	doc.FindMatcher(variantSelectSel).Each(func(_ int, selEl *goquery.Selection) {
		if len(variants) >= maxVariants {
			return
		}
		attr := selectLabel(selEl)
		if attr == "" {
			return
		}
		selEl.FindMatcher(optionSel).Each(func(_ int, opt *goquery.Selection) {
			if len(variants) >= maxVariants {
				return
			}
			label := collapseSpace(opt.Text())
			if label == "" || isPlaceholderOption(label) {
				return
			}
			if v, ok := opt.Attr("value"); ok && strings.TrimSpace(v) == "" {
				return
			}
			_, disabled := opt.Attr("disabled")
			variants = append(variants, models.RawVariant{
				Attributes: map[string]string{attr: label},
				PriceText:  optionPriceText(label),
				Available:  !disabled && !labelUnavailable(label),
			})
		})
	})
	return variants
}

// swatchVariants reads swatch-style variant pickers (labelled list items)
// using platform-specific selectors for the group and its items.
func swatchVariants(doc *goquery.Document, groupSel, labelSel, itemSel cascadia.Selector) []models.RawVariant {
	var variants []models.RawVariant

	doc.FindMatcher(groupSel).Each(func(_ int, group *goquery.Selection) {
		if len(variants) >= maxVariants {
			return
		}
		attr := collapseSpace(group.FindMatcher(labelSel).First().Text())
		attr = strings.TrimSuffix(attr, ":")
		if i := strings.Index(attr, ":"); i > 0 {
			attr = collapseSpace(attr[:i])
		}
		if attr == "" {
			return
		}
		group.FindMatcher(itemSel).Each(func(_ int, item *goquery.Selection) {
			if len(variants) >= maxVariants {
				return
			}
			label := collapseSpace(item.Text())
			if label == "" {
				if v, ok := item.Attr("title"); ok {
					label = collapseSpace(v)
				}
			}
			if label == "" {
				return
			}
			variants = append(variants, models.RawVariant{
				Attributes: map[string]string{attr: label},
				Available:  !labelUnavailable(label) && !itemDisabled(item),
			})
		})
	})
	return variants
}

// offerVariants converts named JSON-LD offers into variants.
func offerVariants(offers []namedOffer) []models.RawVariant {
	var variants []models.RawVariant
	for _, o := range offers {
		if len(variants) >= maxVariants {
			break
		}
		variants = append(variants, models.RawVariant{
			Attributes: map[string]string{"Option": o.Name},
			PriceText:  o.PriceText,
			Available:  !strings.Contains(strings.ToLower(o.Availability), "outofstock"),
		})
	}
	return variants
}

func selectLabel(selEl *goquery.Selection) string {
	if v, ok := selEl.Attr("data-label"); ok && collapseSpace(v) != "" {
		return collapseSpace(v)
	}
	for _, attr := range []string{"name", "id"} {
		if v, ok := selEl.Attr(attr); ok {
			v = humanizeAttrName(v)
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// humanizeAttrName turns "dropdown_selected_size_name" into "Size Name"-ish
// labels; unrecognisable machine names are kept as-is.
func humanizeAttrName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = collapseSpace(name)
	for _, noise := range []string{"dropdown", "selected", "select", "variation", "variant"} {
		name = strings.ReplaceAll(name, noise+" ", "")
		name = strings.TrimPrefix(name, noise)
	}
	return titleCase(collapseSpace(name))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// isPlaceholderOption drops "Select Size" / "Choose an option" entries.
func isPlaceholderOption(label string) bool {
	l := strings.ToLower(label)
	return strings.HasPrefix(l, "select") || strings.HasPrefix(l, "choose") || l == "-" || l == "--"
}

// optionPriceText pulls a price suffix out of labels like
// "Large (+$5.00)" or "Red - $12.99".
func optionPriceText(label string) string {
	if m := priceText.FindString(label); m != "" {
		return strings.TrimPrefix(strings.TrimSpace(m), "+")
	}
	return ""
}

func labelUnavailable(label string) bool {
	l := strings.ToLower(label)
	for _, m := range unavailableMarkers {
		if strings.Contains(l, m) {
			return true
		}
	}
	return false
}

func itemDisabled(item *goquery.Selection) bool {
	if _, ok := item.Attr("disabled"); ok {
		return true
	}
	if cls, ok := item.Attr("class"); ok {
		l := strings.ToLower(cls)
		return strings.Contains(l, "disabled") || strings.Contains(l, "soldout") || strings.Contains(l, "out-of-stock")
	}
	return false
}
