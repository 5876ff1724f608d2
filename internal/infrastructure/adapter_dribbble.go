package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// /shots/<id> or /shots/<id>-<title>
var dribbbleShotPattern = regexp.MustCompile(`^(\d+)(?:-[A-Za-z0-9_-]*)?$`)

// DribbbleAdapter implements Adapter for Dribbble shots
type DribbbleAdapter struct {
	fetcher *HTTPFetcher
	base    *url.URL
	logger  *zap.Logger
}

// NewDribbbleAdapter creates a new Dribbble adapter
func NewDribbbleAdapter(fetcher *HTTPFetcher, baseURL string, logger *zap.Logger) (*DribbbleAdapter, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DribbbleAdapter{fetcher: fetcher, base: base, logger: logger}, nil
}

// Platform returns the platform this adapter handles
func (a *DribbbleAdapter) Platform() domain.Platform {
	return domain.PlatformDribbble
}

// Validate checks the URL and returns the shot ID
func (a *DribbbleAdapter) Validate(rawURL string) (*url.URL, string, error) {
	u, err := parsePlatformURL(domain.PlatformDribbble, rawURL)
	if err != nil {
		return nil, "", err
	}

	segments := pathSegments(u.Path)
	if len(segments) >= 2 && segments[0] == "shots" {
		if m := dribbbleShotPattern.FindStringSubmatch(segments[1]); m != nil {
			return u, m[1], nil
		}
	}
	return nil, "", domain.ErrMalformed(domain.PlatformDribbble,
		fmt.Sprintf("not a Dribbble shot URL: %s", rawURL))
}

// Fetch downloads the main image of a shot
func (a *DribbbleAdapter) Fetch(ctx context.Context, rawURL string, _ *domain.Credentials) (*domain.RetrievedAsset, error) {
	p := domain.PlatformDribbble

	u, shotID, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	page, err := a.fetcher.Get(ctx, p, rebase(u, a.base).String(), nil)
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(p, page.Body)
	if err != nil {
		return nil, err
	}

	imageURL := firstAttr(doc, page.FinalURL,
		selector{"img.Prose-image", "src"},
		selector{"img.Prose-image", "data-src"},
		selector{`meta[property="og:image"]`, "content"},
	)
	if imageURL == "" {
		return nil, domain.ErrUnavailable(p, "no shot image found on page", nil)
	}

	a.logger.Debug("Downloading Dribbble image",
		zap.String("shot_id", shotID),
		zap.String("image_url", imageURL))

	img, err := a.fetcher.fetchImage(ctx, p, imageURL, page.FinalURL.String())
	if err != nil {
		return nil, err
	}

	asset := domain.NewBinaryAsset(p, img.Body, img.MediaType(),
		fmt.Sprintf("dribbble_%s%s", shotID, extensionFor(imageURL, img.ContentType, ".png")))
	asset.Record = map[string]any{
		"shot_id":   shotID,
		"title":     metaContent(doc, "og:title"),
		"image_url": imageURL,
	}
	return asset, nil
}
