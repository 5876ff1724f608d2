package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".svg": true,
}

// FreepikAdapter implements Adapter for Freepik resource pages and images
type FreepikAdapter struct {
	fetcher *HTTPFetcher
	base    *url.URL
	logger  *zap.Logger
}

// NewFreepikAdapter creates a new Freepik adapter
func NewFreepikAdapter(fetcher *HTTPFetcher, baseURL string, logger *zap.Logger) (*FreepikAdapter, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FreepikAdapter{fetcher: fetcher, base: base, logger: logger}, nil
}

// Platform returns the platform this adapter handles
func (a *FreepikAdapter) Platform() domain.Platform {
	return domain.PlatformFreepik
}

// Validate checks the URL and reports whether it points at an image directly
func (a *FreepikAdapter) Validate(rawURL string) (*url.URL, bool, error) {
	u, err := parsePlatformURL(domain.PlatformFreepik, rawURL)
	if err != nil {
		return nil, false, err
	}
	if len(pathSegments(u.Path)) == 0 {
		return nil, false, domain.ErrMalformed(domain.PlatformFreepik,
			fmt.Sprintf("not a Freepik resource URL: %s", rawURL))
	}

	direct := strings.HasPrefix(strings.ToLower(u.Host), "img.") ||
		imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return u, direct, nil
}

// Fetch downloads the preview image of a resource
func (a *FreepikAdapter) Fetch(ctx context.Context, rawURL string, _ *domain.Credentials) (*domain.RetrievedAsset, error) {
	p := domain.PlatformFreepik

	u, direct, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	imageURL := rebase(u, a.base).String()
	referer := ""
	if !direct {
		page, err := a.fetcher.Get(ctx, p, imageURL, nil)
		if err != nil {
			return nil, err
		}
		doc, err := parseHTML(p, page.Body)
		if err != nil {
			return nil, err
		}

		imageURL = firstAttr(doc, page.FinalURL,
			selector{"img.preview-image", "src"},
			selector{"img.preview-image", "data-src"},
			selector{`meta[property="og:image"]`, "content"},
		)
		if imageURL == "" {
			return nil, domain.ErrUnavailable(p, "no preview image found on page", nil)
		}
		referer = page.FinalURL.String()
	}

	a.logger.Debug("Downloading Freepik image", zap.String("image_url", imageURL))

	img, err := a.fetcher.fetchImage(ctx, p, imageURL, referer)
	if err != nil {
		return nil, err
	}

	name := slug.Make(baseName(u.String()))
	if name == "" {
		name = "image"
	}
	asset := domain.NewBinaryAsset(p, img.Body, img.MediaType(),
		fmt.Sprintf("freepik_%s%s", name, extensionFor(imageURL, img.ContentType, ".jpg")))
	asset.Record = map[string]any{
		"page_url":  u.String(),
		"image_url": imageURL,
	}
	return asset, nil
}
