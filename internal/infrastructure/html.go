package infrastructure

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// selector pairs a CSS selector with the attribute holding the value
type selector struct {
	css  string
	attr string
}

// parseHTML parses a page body
func parseHTML(platform domain.Platform, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrUnavailable(platform, "failed to parse page", err)
	}
	return doc, nil
}

// metaContent returns the content of <meta property=name> or <meta name=name>
func metaContent(doc *goquery.Document, name string) string {
	for _, attr := range []string{"property", "name"} {
		sel := doc.Find(`meta[` + attr + `="` + name + `"]`).First()
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute matched by selectors,
// in the order given. It resolves relative references against base.
func firstAttr(doc *goquery.Document, base *url.URL, selectors ...selector) string {
	for _, s := range selectors {
		var found string
		doc.Find(s.css).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			v, ok := el.Attr(s.attr)
			v = strings.TrimSpace(v)
			if !ok || v == "" || strings.HasPrefix(v, "data:") {
				return true
			}
			found = v
			return false
		})
		if found != "" {
			return resolveReference(base, found)
		}
	}
	return ""
}

// resolveReference resolves ref relative to base
func resolveReference(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// scriptText returns the text of the first <script> matching css
func scriptText(doc *goquery.Document, css string) string {
	return strings.TrimSpace(doc.Find(css).First().Text())
}

// containsAny reports whether s contains any of the needles, ignoring case
func containsAny(s string, needles ...string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
