package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Fetch     FetchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	PagePool  PagePoolConfig
	Webhook   WebhookConfig
}

// FetchConfig controls the fetch retry loop shared by all transports.
type FetchConfig struct {
	// MaxAttempts is the total attempts per transport, first try included.
	MaxAttempts int // default: 3

	// BaseDelay is the backoff before the second attempt; it doubles per
	// attempt with jitter up to MaxDelay.
	BaseDelay time.Duration // default: 500ms
	MaxDelay  time.Duration // default: 8s

	// AttemptTimeout is the deadline for a single fetch attempt.
	AttemptTimeout time.Duration // default: 15s
}

// PagePoolConfig controls the health-scored browser page pool.
type PagePoolConfig struct {
	// MinPages is the minimum number of pages kept in the pool.
	MinPages int // default: 3

	// HardMax is the absolute maximum number of pages.
	HardMax int // default: 20

	// MemThreshold is the heap memory fraction (0.0-1.0) above which the pool shrinks.
	MemThreshold float64 // default: 0.9

	// ScaleStep is the fraction of pool size to grow or shrink per interval.
	ScaleStep float64 // default: 0.05
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Enabled toggles the browser transports entirely. Disabled deployments
	// run HTTP-only and never escalate.
	Enabled bool // default: true

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// MaxImages is the default image cap when the request leaves it unset.
	MaxImages int // default: 10

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Stylesheet", "Font", "Media"]. Images stay unblocked: the
	// extractor reads their URLs out of the rendered DOM.
	BlockedResourceTypes []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys (for MVP; replace with DB later).
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	// SigningSecret signs webhook payloads; empty disables signing.
	SigningSecret string

	// Timeout is the per-delivery HTTP timeout.
	Timeout time.Duration // default: 10s
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRODSCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("PRODSCRAPE_PORT", 8080),
			Mode: envOr("PRODSCRAPE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Enabled:      envBoolOr("PRODSCRAPE_BROWSER_ENABLED", true),
			Headless:     envBoolOr("PRODSCRAPE_HEADLESS", true),
			DefaultProxy: os.Getenv("PRODSCRAPE_PROXY"),
			NoSandbox:    envBoolOr("PRODSCRAPE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PRODSCRAPE_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout: envDurationOr("PRODSCRAPE_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:     envDurationOr("PRODSCRAPE_MAX_TIMEOUT", 120*time.Second),
			MaxImages:      envIntOr("PRODSCRAPE_MAX_IMAGES", 10),
			BlockedResourceTypes: envSliceOr("PRODSCRAPE_BLOCKED_RESOURCES", []string{
				"Stylesheet", "Font", "Media",
			}),
		},
		Fetch: FetchConfig{
			MaxAttempts:    envIntOr("PRODSCRAPE_FETCH_ATTEMPTS", 3),
			BaseDelay:      envDurationOr("PRODSCRAPE_FETCH_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:       envDurationOr("PRODSCRAPE_FETCH_MAX_DELAY", 8*time.Second),
			AttemptTimeout: envDurationOr("PRODSCRAPE_FETCH_ATTEMPT_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRODSCRAPE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PRODSCRAPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRODSCRAPE_RATE_RPS", 5.0),
			Burst:             envIntOr("PRODSCRAPE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PRODSCRAPE_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PRODSCRAPE_LOG_LEVEL", "info"),
			Format: envOr("PRODSCRAPE_LOG_FORMAT", "json"),
		},
		PagePool: PagePoolConfig{
			MinPages:     envIntOr("PRODSCRAPE_MIN_PAGES", 3),
			HardMax:      envIntOr("PRODSCRAPE_HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("PRODSCRAPE_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("PRODSCRAPE_SCALE_STEP", 0.05),
		},
		Webhook: WebhookConfig{
			SigningSecret: os.Getenv("PRODSCRAPE_WEBHOOK_SECRET"),
			Timeout:       envDurationOr("PRODSCRAPE_WEBHOOK_TIMEOUT", 10*time.Second),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
