package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape produced a product at all.
	// Partial products still count as success.
	Success bool `json:"success"`

	// Completeness is "complete" or "partial" on success.
	Completeness Completeness `json:"completeness,omitempty"`

	// Product is the canonical record. Populated only on success.
	Product *Product `json:"product,omitempty"`

	// Transport records which transport produced the page
	// ("http", "browser", "browser-stealth").
	Transport string `json:"transport,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent fetching (all attempts and fallbacks).
	FetchMs int64 `json:"fetch_ms"`

	// ExtractMs is the time spent in extraction and normalization.
	ExtractMs int64 `json:"extract_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	LivePages   int `json:"live_pages"`
	ActivePages int `json:"active_pages"`
}
