package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/models"
)

// Strategy turns one fetched page into raw product fields. Implementations
// are stateless and safe for concurrent use; they never touch the network.
type Strategy interface {
	Platform() models.Platform
	Extract(res *engine.FetchResult) (*models.RawProductFields, error)
}

// Registry maps platforms to their extraction strategies. Unknown platforms
// fall through to the generic strategy.
type Registry struct {
	byPlatform map[models.Platform]Strategy
	generic    Strategy
}

// NewRegistry builds the registry with all built-in strategies wired.
func NewRegistry() *Registry {
	generic := &GenericStrategy{}
	r := &Registry{
		byPlatform: make(map[models.Platform]Strategy),
		generic:    generic,
	}
	for _, s := range []Strategy{
		&AliExpressStrategy{},
		&AmazonStrategy{},
		&EbayStrategy{},
		&BestBuyStrategy{},
	} {
		r.byPlatform[s.Platform()] = s
	}
	r.byPlatform[models.PlatformGeneric] = generic
	return r
}

// For returns the strategy for the platform, or the generic strategy when
// no dedicated one exists.
func (r *Registry) For(p models.Platform) Strategy {
	if s, ok := r.byPlatform[p]; ok {
		return s
	}
	return r.generic
}

// Generic returns the fallback strategy used for degraded re-extraction.
func (r *Registry) Generic() Strategy { return r.generic }

// parseDoc parses the fetched HTML once and runs the shared block check.
// Every strategy goes through here so block pages are caught uniformly.
func parseDoc(res *engine.FetchResult) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if err := checkBlocked(doc, res); err != nil {
		return nil, err
	}
	return doc, nil
}
