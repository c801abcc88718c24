// Package platform maps product URLs to a platform tag and a normalized URL.
// Classification is purely syntactic: no network access happens here.
package platform

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/storeforge/prodscrape/models"
)

// ErrInvalidURL is wrapped into the returned error for malformed input.
var ErrInvalidURL = fmt.Errorf("invalid product URL")

// domainTags maps known domain suffixes to platform tags. Matching is
// suffix-based on the hostname so regional storefronts (amazon.de,
// it.aliexpress.com) resolve to the same tag. Unknown hosts are Generic.
var domainTags = []struct {
	suffix string
	tag    models.Platform
}{
	{"aliexpress.com", models.PlatformAliExpress},
	{"aliexpress.us", models.PlatformAliExpress},
	{"aliexpress.ru", models.PlatformAliExpress},
	{"amazon.com", models.PlatformAmazon},
	{"amazon.co.uk", models.PlatformAmazon},
	{"amazon.de", models.PlatformAmazon},
	{"amazon.fr", models.PlatformAmazon},
	{"amazon.it", models.PlatformAmazon},
	{"amazon.es", models.PlatformAmazon},
	{"amazon.ca", models.PlatformAmazon},
	{"amazon.in", models.PlatformAmazon},
	{"amazon.co.jp", models.PlatformAmazon},
	{"amazon.com.au", models.PlatformAmazon},
	{"amazon.com.mx", models.PlatformAmazon},
	{"amzn.to", models.PlatformAmazon},
	{"amzn.in", models.PlatformAmazon},
	{"amzn.eu", models.PlatformAmazon},
	{"ebay.com", models.PlatformEBay},
	{"ebay.co.uk", models.PlatformEBay},
	{"ebay.de", models.PlatformEBay},
	{"ebay.fr", models.PlatformEBay},
	{"ebay.it", models.PlatformEBay},
	{"ebay.es", models.PlatformEBay},
	{"ebay.ca", models.PlatformEBay},
	{"ebay.com.au", models.PlatformEBay},
	{"bestbuy.com", models.PlatformBestBuy},
	{"bestbuy.ca", models.PlatformBestBuy},
}

// trackingParams are query parameters that carry affiliate/analytics state
// and never affect which product a URL points to.
var trackingParams = map[string]struct{}{
	"fbclid":        {},
	"gclid":         {},
	"msclkid":       {},
	"mc_cid":        {},
	"mc_eid":        {},
	"igshid":        {},
	"ref":           {},
	"ref_":          {},
	"tag":           {},
	"linkcode":      {},
	"linkid":        {},
	"ascsubtag":     {},
	"creative":      {},
	"creativeasin":  {},
	"camp":          {},
	"spm":           {},
	"scm":           {},
	"srcsns":        {},
	"aff_platform":  {},
	"aff_trace_key": {},
	"aff_fcid":      {},
	"aff_fsk":       {},
	"algo_pvid":     {},
	"algo_exp_id":   {},
	"pdp_npi":       {},
	"gatewayadapt":  {},
	"_trkparms":     {},
	"_trksid":       {},
	"mkcid":         {},
	"mkrid":         {},
	"mkevt":         {},
	"campid":        {},
	"toolid":        {},
	"customid":      {},
	"hash":          {},
	"irclickid":     {},
	"cmp":           {},
	"skuid":         {},
}

// Classify returns the platform tag for rawURL together with a normalized
// form of the URL (lowercased host, tracking parameters and fragment
// stripped). It fails only on syntactically malformed input; unknown hosts
// classify as Generic with the URL retained.
func Classify(rawURL string) (models.Platform, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	tag := tagForHost(u.Hostname())
	return tag, Normalize(u), nil
}

// Normalize rewrites u into its canonical string form: lowercase host,
// default ports dropped, tracking query parameters removed, fragment removed.
// The remaining query parameters are re-encoded in sorted order so the
// normalized URL is deterministic.
func Normalize(u *url.URL) string {
	n := *u
	n.Host = strings.ToLower(n.Host)
	n.Host = strings.TrimSuffix(n.Host, ":80")
	n.Host = strings.TrimSuffix(n.Host, ":443")
	n.Fragment = ""
	n.RawFragment = ""

	q := n.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if _, drop := trackingParams[lower]; drop || strings.HasPrefix(lower, "utm_") {
			q.Del(key)
		}
	}
	n.RawQuery = q.Encode()

	return n.String()
}

// tagForHost matches the hostname against the known domain suffixes.
func tagForHost(host string) models.Platform {
	host = strings.ToLower(host)
	for _, d := range domainTags {
		if host == d.suffix || strings.HasSuffix(host, "."+d.suffix) {
			return d.tag
		}
	}
	return models.PlatformGeneric
}
