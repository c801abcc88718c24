package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storeforge/prodscrape/cache"
	"github.com/storeforge/prodscrape/models"
	"github.com/storeforge/prodscrape/platform"
	"github.com/storeforge/prodscrape/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when max_age was requested.
//  3. Scraper.Scrape → canonical product.
//  4. Fill timing and completeness, store in cache, return 200.
//
// The cache key uses the normalized URL so tracking-parameter variants of
// the same product page share one entry.
func Scrape(sc *scraper.Scraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		cacheKey := ""
		if cc != nil && req.MaxAge > 0 {
			if _, normalized, err := platform.Classify(req.URL); err == nil {
				cacheKey = cache.Key(normalized, req.MaxImages)
				if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
					cached.CacheStatus = "hit"
					cached.Timing = models.TimingInfo{
						TotalMs: time.Since(totalStart).Milliseconds(),
					}
					c.JSON(http.StatusOK, cached)
					return
				}
			}
		}

		result, serr := sc.Scrape(c.Request.Context(), &req)
		if serr != nil {
			respondError(c, serr, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		resp := &models.ScrapeResponse{
			Success:      true,
			Completeness: result.Product.Completeness(),
			Product:      result.Product,
			Transport:    string(result.Transport),
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   result.Timing.FetchMs,
				ExtractMs: result.Timing.ExtractMs,
			},
		}

		if cacheKey != "" {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, serr *models.ScrapeError, timing models.TimingInfo) {
	c.JSON(mapErrorToStatus(serr), models.ScrapeResponse{
		Success: false,
		Error:   serr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidURL, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetchFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeBlocked:
		return http.StatusBadGateway // 502
	case models.ErrCodeNormalization:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
