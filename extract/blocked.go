package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/storeforge/prodscrape/engine"
)

// ErrBlocked is returned when the fetched document is an anti-bot
// interstitial rather than a product page. The orchestrator retries once on
// a more capable transport before giving up.
var ErrBlocked = errors.New("blocked by anti-bot protection")

// BlockedError carries the marker that tripped detection.
type BlockedError struct {
	Marker string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by anti-bot protection (marker %q)", e.Marker)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// blockSelectors are DOM shapes that only appear on challenge pages.
var blockSelectors = []cascadia.Selector{
	sel(`form[action*="validateCaptcha"]`),
	sel(`#captchacharacters`),
	sel(`#px-captcha`),
	sel(`#challenge-form`),
	sel(`#cf-challenge-running`),
	sel(`iframe[src*="hcaptcha.com"]`),
	sel(`iframe[src*="recaptcha"]`),
	sel(`div.g-recaptcha`),
}

// blockTitles match the <title> of common interstitials exactly enough to
// avoid false positives from product copy.
var blockTitles = []string{
	"robot check",
	"access denied",
	"attention required",
	"just a moment",
	"pardon our interruption",
	"security verification",
	"human verification",
}

// blockPhrases are checked against page text only when the page is short;
// a real product page mentioning "captcha" in a review must not trip this.
var blockPhrases = []string{
	"verify you are a human",
	"verify that you are not a robot",
	"are you a robot",
	"unusual traffic from your",
	"enter the characters you see below",
	"please complete the security check",
}

const blockTextScanLimit = 20_000

// checkBlocked decides whether the document is a challenge page. It returns
// a *BlockedError (unwrapping to ErrBlocked) when it is, nil otherwise.
func checkBlocked(doc *goquery.Document, res *engine.FetchResult) error {
	for _, s := range blockSelectors {
		if doc.FindMatcher(s).Length() > 0 {
			return &BlockedError{Marker: "selector"}
		}
	}

	title := strings.ToLower(collapseSpace(doc.FindMatcher(titleSel).First().Text()))
	if title == "" {
		title = strings.ToLower(res.Title)
	}
	for _, t := range blockTitles {
		if strings.Contains(title, t) {
			return &BlockedError{Marker: t}
		}
	}

	// 403/503 bodies from edge protection are small; only short documents
	// get the phrase scan.
	if len(res.HTML) <= blockTextScanLimit {
		body := strings.ToLower(doc.FindMatcher(bodySel).Text())
		for _, p := range blockPhrases {
			if strings.Contains(body, p) {
				return &BlockedError{Marker: p}
			}
		}
	}
	return nil
}

var (
	titleSel = sel("title")
	bodySel  = sel("body")
)
