package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

var lottieJSONPattern = regexp.MustCompile(`https://[A-Za-z0-9.-]*lottiefiles\.com/[^"'\s<>]+?\.json`)

// LottieAdapter implements Adapter for LottieFiles animations
type LottieAdapter struct {
	fetcher *HTTPFetcher
	base    *url.URL
	logger  *zap.Logger
}

// NewLottieAdapter creates a new LottieFiles adapter
func NewLottieAdapter(fetcher *HTTPFetcher, baseURL string, logger *zap.Logger) (*LottieAdapter, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LottieAdapter{fetcher: fetcher, base: base, logger: logger}, nil
}

// Platform returns the platform this adapter handles
func (a *LottieAdapter) Platform() domain.Platform {
	return domain.PlatformLottieFiles
}

// Validate checks the URL and reports whether it is a direct JSON link
func (a *LottieAdapter) Validate(rawURL string) (*url.URL, bool, error) {
	u, err := parsePlatformURL(domain.PlatformLottieFiles, rawURL)
	if err != nil {
		return nil, false, err
	}
	if len(pathSegments(u.Path)) == 0 {
		return nil, false, domain.ErrMalformed(domain.PlatformLottieFiles,
			fmt.Sprintf("not a LottieFiles animation URL: %s", rawURL))
	}
	return u, isJSONPath(u.Path), nil
}

// Fetch downloads the animation JSON
func (a *LottieAdapter) Fetch(ctx context.Context, rawURL string, _ *domain.Credentials) (*domain.RetrievedAsset, error) {
	p := domain.PlatformLottieFiles

	u, direct, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	jsonURL := rebase(u, a.base).String()
	if !direct {
		page, err := a.fetcher.Get(ctx, p, jsonURL, nil)
		if err != nil {
			return nil, err
		}
		doc, err := parseHTML(p, page.Body)
		if err != nil {
			return nil, err
		}
		jsonURL = findLottieJSON(doc, page)
		if jsonURL == "" {
			return nil, domain.ErrUnavailable(p, "no Lottie JSON found on page", nil)
		}
	}

	a.logger.Debug("Downloading Lottie animation", zap.String("json_url", jsonURL))

	header := http.Header{}
	header.Set("Accept", "application/json")
	doc, err := a.fetcher.Get(ctx, p, jsonURL, header)
	if err != nil {
		return nil, err
	}
	if err := validateLottie(doc.Body); err != nil {
		return nil, err
	}

	name := slug.Make(baseName(jsonURL))
	if name == "" {
		name = "animation"
	}
	asset := domain.NewJSONAsset(p, doc.Body, name+".json")
	asset.Record = map[string]any{
		"json_url":   jsonURL,
		"name":       gjson.GetBytes(doc.Body, "nm").String(),
		"version":    gjson.GetBytes(doc.Body, "v").String(),
		"frame_rate": gjson.GetBytes(doc.Body, "fr").Float(),
		"width":      gjson.GetBytes(doc.Body, "w").Int(),
		"height":     gjson.GetBytes(doc.Body, "h").Int(),
	}
	return asset, nil
}

// findLottieJSON looks for the animation source in player tags, links and
// finally anywhere in the page body
func findLottieJSON(doc *goquery.Document, page *fetchResult) string {
	candidates := []selector{
		{"lottie-player", "src"},
		{"dotlottie-player", "src"},
		{"[data-lottie-src]", "data-lottie-src"},
		{"[data-src]", "data-src"},
		{"a[href]", "href"},
	}

	for _, c := range candidates {
		var found string
		doc.Find(c.css).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			v, _ := el.Attr(c.attr)
			v = strings.TrimSpace(v)
			if v == "" || !isJSONPath(v) {
				return true
			}
			found = resolveReference(page.FinalURL, v)
			return false
		})
		if found != "" {
			return found
		}
	}

	if m := lottieJSONPattern.Find(page.Body); m != nil {
		return string(m)
	}
	return ""
}

// isJSONPath reports whether a URL or path names a .json file
func isJSONPath(p string) bool {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ".json")
}

// validateLottie checks that body is a Lottie animation document
func validateLottie(body []byte) error {
	p := domain.PlatformLottieFiles
	if !gjson.ValidBytes(body) {
		return domain.ErrUnavailable(p, "response is not valid JSON", nil)
	}
	if !gjson.GetBytes(body, "v").Exists() || !gjson.GetBytes(body, "layers").IsArray() {
		return domain.ErrUnavailable(p, "JSON document is not a Lottie animation", nil)
	}
	return nil
}
