package models

// ScrapeRequest is the payload for POST /api/v1/scrape and the input to the
// core scraper. One immutable request per call.
type ScrapeRequest struct {
	// URL is the product page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// PreferredTransport overrides the platform's default transport.
	// Allowed: "http", "browser", "browser-stealth".
	PreferredTransport string `json:"preferred_transport,omitempty" binding:"omitempty,oneof=http browser browser-stealth"`

	// Timeout is the maximum duration in seconds for the entire scrape
	// (fetch + extract + normalize). Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// MaxImages caps the product image list. Default: 10. Max: 30.
	MaxImages int `json:"max_images,omitempty" binding:"omitempty,min=1,max=30"`

	// MaxAge enables the API-layer response cache: a cached result younger
	// than MaxAge milliseconds is returned without re-scraping.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.MaxImages == 0 {
		r.MaxImages = 10
	}
}
