package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storeforge/prodscrape/models"
)

// APIKeyContextKey is where Auth stores the caller's key; the rate limiter
// uses it as the request identity.
const APIKeyContextKey = "api_key"

// Auth guards the scrape endpoints with the static keys from
// PRODSCRAPE_API_KEYS. Callers present a key either way:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// With no keys configured the deployment is open and every request passes.
// Key comparison is constant-time across the whole key list, so response
// timing leaks neither key bytes nor which key matched.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := requestAPIKey(c)
		if key == "" {
			unauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}
		if !keyAllowed(keys, key) {
			unauthorized(c, "invalid API key")
			return
		}
		c.Set(APIKeyContextKey, key)
		c.Next()
	}
}

// keyAllowed checks the candidate against every configured key without
// short-circuiting on the first match.
func keyAllowed(keys []string, candidate string) bool {
	allowed := false
	for _, k := range keys {
		if len(k) == len(candidate) &&
			subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			allowed = true
		}
	}
	return allowed
}

// requestAPIKey reads X-API-Key first, then Authorization: Bearer.
func requestAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ScrapeResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
