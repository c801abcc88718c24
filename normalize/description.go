package normalize

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// markdownConverter is goroutine-safe and shared across requests:
//   - base plugin strips script, style, iframe, noscript, and comments.
//   - commonmark renders standard Markdown.
//   - table keeps spec tables readable with minimal cell padding.
var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// maxDescriptionLength bounds the stored description; retail description
// blocks can run to megabytes of boilerplate.
const maxDescriptionLength = 5000

// NormalizeDescription converts extracted description HTML to Markdown with
// relative links resolved against the page URL. Conversion failures fall
// back to whitespace-collapsed plain text rather than failing the product.
func NormalizeDescription(html, pageURL string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}

	md, err := markdownConverter.ConvertString(html, converter.WithDomain(domain))
	if err != nil {
		md = collapseText(html)
	}
	md = strings.TrimSpace(md)
	if len(md) > maxDescriptionLength {
		cut := maxDescriptionLength
		for cut > 0 && !utf8.RuneStart(md[cut]) {
			cut--
		}
		md = strings.TrimSpace(md[:cut])
	}
	return md
}

// collapseText is the loss-tolerant fallback: drop tags crudely, fold runs
// of whitespace.
func collapseText(html string) string {
	var b strings.Builder
	inTag := false
	lastSpace := true
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case !inTag:
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				if !lastSpace {
					b.WriteByte(' ')
					lastSpace = true
				}
			} else {
				b.WriteRune(r)
				lastSpace = false
			}
		}
	}
	return strings.TrimSpace(b.String())
}
