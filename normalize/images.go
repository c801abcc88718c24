package normalize

import (
	"net/url"
	"sort"
	"strings"
)

// imageTrackingParams are query parameters stripped from image URLs before
// deduplication, so the same asset served with different campaign tags
// collapses to one entry.
var imageTrackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {},
	"utm_term": {}, "utm_content": {},
	"ref": {}, "tag": {}, "spm": {}, "scm": {},
}

// NormalizeImages resolves raw image URLs against the page's final URL,
// strips tracking parameters, deduplicates preserving first-seen order, and
// caps the list at maxImages with a deterministic tail cut.
func NormalizeImages(raw []string, base string, maxImages int) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = nil
	}

	var out []string
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		abs := resolveImage(r, baseURL)
		if abs == "" {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		if maxImages > 0 && len(out) >= maxImages {
			break
		}
	}
	return out
}

// resolveImage turns one raw src into an absolute, tracking-free URL, or ""
// when it cannot become one.
func resolveImage(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		// Scheme-relative URLs with no base to resolve against default to https.
		if u.Scheme == "" && u.Host != "" {
			u.Scheme = "https"
		} else {
			return ""
		}
	}
	if u.Host == "" {
		return ""
	}

	u.Fragment = ""
	if u.RawQuery != "" {
		u.RawQuery = stripImageTracking(u.Query())
	}
	return u.String()
}

func stripImageTracking(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, drop := imageTrackingParams[k]; drop {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
