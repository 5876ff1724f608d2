package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

var tiktokIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PageRenderer returns the HTML of a page after client-side rendering
type PageRenderer interface {
	Render(ctx context.Context, rawURL string) ([]byte, error)
}

// httpRenderer renders pages with a plain GET request
type httpRenderer struct {
	fetcher *HTTPFetcher
}

// NewHTTPRenderer returns a renderer backed by fetcher
func NewHTTPRenderer(fetcher *HTTPFetcher) PageRenderer {
	return &httpRenderer{fetcher: fetcher}
}

func (r *httpRenderer) Render(ctx context.Context, rawURL string) ([]byte, error) {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml")
	page, err := r.fetcher.Get(ctx, domain.PlatformTikTok, rawURL, header)
	if err != nil {
		return nil, err
	}
	return page.Body, nil
}

// TikTokAdapter implements Adapter for TikTok videos.
// TikTok actively blocks automated clients, so results are best effort.
type TikTokAdapter struct {
	fetcher  *HTTPFetcher
	renderer PageRenderer
	base     *url.URL
	logger   *zap.Logger
}

// NewTikTokAdapter creates a new TikTok adapter; a nil renderer uses plain HTTP
func NewTikTokAdapter(fetcher *HTTPFetcher, renderer PageRenderer, baseURL string, logger *zap.Logger) (*TikTokAdapter, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = NewHTTPRenderer(fetcher)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TikTokAdapter{
		fetcher:  fetcher,
		renderer: renderer,
		base:     base,
		logger:   logger,
	}, nil
}

// Platform returns the platform this adapter handles
func (a *TikTokAdapter) Platform() domain.Platform {
	return domain.PlatformTikTok
}

// Validate checks the URL and returns the video ID or short link code
func (a *TikTokAdapter) Validate(rawURL string) (*url.URL, string, error) {
	u, err := parsePlatformURL(domain.PlatformTikTok, rawURL)
	if err != nil {
		return nil, "", err
	}

	segments := pathSegments(u.Path)
	host := strings.ToLower(u.Host)

	// vm.tiktok.com/<code> and vt.tiktok.com/<code> short links
	if strings.HasPrefix(host, "vm.") || strings.HasPrefix(host, "vt.") {
		if len(segments) == 1 && tiktokIDPattern.MatchString(segments[0]) {
			return u, segments[0], nil
		}
	}

	switch {
	case len(segments) == 2 && segments[0] == "t" && tiktokIDPattern.MatchString(segments[1]):
		return u, segments[1], nil
	case len(segments) >= 3 && strings.HasPrefix(segments[0], "@") &&
		(segments[1] == "video" || segments[1] == "photo") && tiktokIDPattern.MatchString(segments[2]):
		return u, segments[2], nil
	}

	return nil, "", domain.ErrMalformed(domain.PlatformTikTok, fmt.Sprintf("not a TikTok video URL: %s", rawURL))
}

// tiktokVideo is the data extracted from a video page
type tiktokVideo struct {
	ID          string
	VideoURL    string
	Description string
	Author      string
	Plays       int64
}

// Fetch renders the video page and downloads the play address.
// When the download is refused the video metadata is returned instead.
func (a *TikTokAdapter) Fetch(ctx context.Context, rawURL string, _ *domain.Credentials) (*domain.RetrievedAsset, error) {
	p := domain.PlatformTikTok

	u, id, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	// rendering errors are already categorised
	html, err := a.renderer.Render(ctx, rebase(u, a.base).String())
	if err != nil {
		return nil, domain.AsRetrievalError(p, err)
	}
	if isTikTokChallenge(html) {
		return nil, domain.ErrBlocked(p, "TikTok served a verification challenge", nil)
	}

	video, err := parseTikTokPage(html, u)
	if err != nil {
		return nil, err
	}
	if video.ID == "" {
		video.ID = id
	}

	a.logger.Debug("Downloading TikTok video",
		zap.String("video_id", video.ID),
		zap.String("video_url", video.VideoURL))

	header := http.Header{}
	header.Set("Referer", "https://www.tiktok.com/")
	media, err := a.fetcher.Get(ctx, p, video.VideoURL, header)
	if err != nil {
		re := domain.AsRetrievalError(p, err)
		if re.Category != domain.CategoryPlatformBlocked && re.Category != domain.CategoryAccessRestricted {
			return nil, re
		}

		a.logger.Info("TikTok refused the video download, returning metadata",
			zap.String("video_id", video.ID),
			zap.Error(re))
		return domain.NewMetadataAsset(p, video.record(re.Message), tiktokFilename(video, ".json")), nil
	}

	asset := domain.NewBinaryAsset(p, media.Body, media.MediaType(),
		tiktokFilename(video, extensionFor(video.VideoURL, media.ContentType, ".mp4")))
	asset.Record = video.record("")
	return asset, nil
}

func (v *tiktokVideo) record(reason string) map[string]any {
	rec := map[string]any{
		"video_id":    v.ID,
		"video_url":   v.VideoURL,
		"description": v.Description,
		"author":      v.Author,
		"plays":       v.Plays,
	}
	if reason != "" {
		rec["download_refused"] = reason
	}
	return rec
}

func tiktokFilename(v *tiktokVideo, ext string) string {
	if v.Author != "" {
		return fmt.Sprintf("tiktok_%s_%s%s", v.Author, v.ID, ext)
	}
	return fmt.Sprintf("tiktok_%s%s", v.ID, ext)
}

// isTikTokChallenge detects captcha and verification interstitials
func isTikTokChallenge(html []byte) bool {
	return containsAny(string(html),
		"captcha_verify_container",
		"secsdk-captcha",
		"tiktok-verify-page",
		"Verify to continue",
		"verify you are human",
	)
}

// parseTikTokPage extracts the video from the rehydration data, the legacy
// SIGI_STATE blob or a plain <video> tag, in that order.
func parseTikTokPage(html []byte, pageURL *url.URL) (*tiktokVideo, error) {
	p := domain.PlatformTikTok

	doc, err := parseHTML(p, html)
	if err != nil {
		return nil, err
	}

	if data := scriptText(doc, "script#__UNIVERSAL_DATA_FOR_REHYDRATION__"); data != "" {
		detail := gjson.Get(data, `__DEFAULT_SCOPE__.webapp\.video-detail`)
		switch status := detail.Get("statusCode").Int(); status {
		case 0:
		case 10216, 10222:
			return nil, domain.ErrAccessRestricted(p, "video is private", nil)
		default:
			return nil, domain.ErrUnavailable(p, fmt.Sprintf("video unavailable (status %d)", status), nil)
		}
		if item := detail.Get("itemInfo.itemStruct"); item.Exists() {
			return tiktokVideoFromItem(item)
		}
	}

	if data := scriptText(doc, "script#SIGI_STATE"); data != "" {
		var found *tiktokVideo
		gjson.Get(data, "ItemModule").ForEach(func(_, item gjson.Result) bool {
			v, err := tiktokVideoFromItem(item)
			if err == nil {
				found = v
				return false
			}
			return true
		})
		if found != nil {
			return found, nil
		}
	}

	if src := firstAttr(doc, pageURL,
		selector{"video", "src"},
		selector{"video source", "src"},
	); src != "" {
		return &tiktokVideo{
			VideoURL:    src,
			Description: metaContent(doc, "og:description"),
		}, nil
	}

	// an empty shell page is what TikTok serves to clients it has flagged
	return nil, domain.ErrBlocked(p, "TikTok returned no video data", nil)
}

func tiktokVideoFromItem(item gjson.Result) (*tiktokVideo, error) {
	v := &tiktokVideo{
		ID:          item.Get("id").String(),
		Description: item.Get("desc").String(),
		Author:      item.Get("author.uniqueId").String(),
		Plays:       item.Get("stats.playCount").Int(),
	}
	if author := item.Get("author"); v.Author == "" && author.Type == gjson.String {
		v.Author = author.String()
	}
	for _, path := range []string{"video.playAddr", "video.downloadAddr"} {
		if addr := item.Get(path).String(); addr != "" {
			v.VideoURL = addr
			break
		}
	}
	if v.VideoURL == "" {
		return nil, domain.ErrUnavailable(domain.PlatformTikTok, "video has no playable stream", nil)
	}
	return v, nil
}
