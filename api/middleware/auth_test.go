package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(apiKeys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(apiKeys))
	r.GET("/ping", func(c *gin.Context) {
		key, _ := c.Get(APIKeyContextKey)
		c.String(http.StatusOK, "%v", key)
	})
	return r
}

func TestAuth_AcceptsBothHeaderForms(t *testing.T) {
	r := authRouter([]string{"secret-one", "secret-two"})

	cases := []struct {
		name   string
		header string
		value  string
	}{
		{"api key header", "X-API-Key", "secret-one"},
		{"bearer token", "Authorization", "Bearer secret-two"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(tc.header, tc.value)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", tc.name, w.Code)
		}
	}
}

func TestAuth_StoresKeyForRateLimiter(t *testing.T) {
	r := authRouter([]string{"secret-one"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "secret-one")
	r.ServeHTTP(w, req)
	if w.Body.String() != "secret-one" {
		t.Errorf("context key = %q, want %q", w.Body.String(), "secret-one")
	}
}

func TestAuth_RejectsMissingAndWrongKeys(t *testing.T) {
	r := authRouter([]string{"secret-one"})

	cases := []struct {
		name   string
		header string
		value  string
	}{
		{"no key", "", ""},
		{"wrong key", "X-API-Key", "secret-two"},
		{"same length, different bytes", "X-API-Key", "secret-onf"},
		{"prefix of a real key", "Authorization", "Bearer secret"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, w.Code)
		}
	}
}

func TestAuth_NoKeysConfiguredIsOpen(t *testing.T) {
	r := authRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestKeyAllowed_ChecksEveryKey(t *testing.T) {
	keys := []string{"alpha", "beta", "gamma"}
	if !keyAllowed(keys, "beta") {
		t.Error("configured key rejected")
	}
	if keyAllowed(keys, "delta") {
		t.Error("unknown key accepted")
	}
	if keyAllowed(keys, "") {
		t.Error("empty key accepted")
	}
}
