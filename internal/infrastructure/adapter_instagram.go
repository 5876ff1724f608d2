package infrastructure

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

const (
	instagramHost  = "www.instagram.com"
	instagramAppID = "936619743392459"

	// logged-in sessions are re-established after this age
	instagramSessionMaxAge = 12 * time.Hour

	// shortcodes are base64 with this alphabet
	instagramAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

var (
	instagramShortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	instagramCSRFPattern      = regexp.MustCompile(`"csrf_token":"([^"]+)"`)
)

// InstagramAdapter implements Adapter for Instagram posts, reels and IGTV.
// Without credentials it reads the public post page. With credentials it
// logs in once per credential bundle and reuses the session.
type InstagramAdapter struct {
	fetcher *HTTPFetcher
	base    *url.URL
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*instagramSession
}

// instagramSession is a logged-in cookie jar for one credential bundle
type instagramSession struct {
	client    *http.Client
	csrfToken string
	createdAt time.Time
}

// NewInstagramAdapter creates a new Instagram adapter.
// baseURL overrides https://www.instagram.com and is empty in production.
func NewInstagramAdapter(fetcher *HTTPFetcher, baseURL string, logger *zap.Logger) (*InstagramAdapter, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstagramAdapter{
		fetcher:  fetcher,
		base:     base,
		logger:   logger,
		sessions: make(map[string]*instagramSession),
	}, nil
}

// Platform returns the platform this adapter handles
func (a *InstagramAdapter) Platform() domain.Platform {
	return domain.PlatformInstagram
}

// Validate checks the URL and returns the post shortcode
func (a *InstagramAdapter) Validate(rawURL string) (string, error) {
	u, err := parsePlatformURL(domain.PlatformInstagram, rawURL)
	if err != nil {
		return "", err
	}

	segments := pathSegments(u.Path)
	for i := 0; i+1 < len(segments); i++ {
		switch segments[i] {
		case "p", "reel", "reels", "tv":
			code := segments[i+1]
			if instagramShortcodePattern.MatchString(code) {
				return code, nil
			}
		}
	}
	return "", domain.ErrMalformed(domain.PlatformInstagram,
		fmt.Sprintf("not an Instagram post, reel or IGTV URL: %s", rawURL))
}

// Fetch downloads the media of a post
func (a *InstagramAdapter) Fetch(ctx context.Context, rawURL string, creds *domain.Credentials) (*domain.RetrievedAsset, error) {
	shortcode, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	if login, ok := creds.InstagramLogin(); ok {
		return a.fetchAuthenticated(ctx, shortcode, login)
	}
	return a.fetchPublic(ctx, shortcode)
}

// Close drops every cached session
func (a *InstagramAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key := range a.sessions {
		delete(a.sessions, key)
	}
	return nil
}

// endpoint builds an instagram.com URL, honouring the base override
func (a *InstagramAdapter) endpoint(p string) string {
	u := &url.URL{Scheme: "https", Host: instagramHost, Path: p}
	return rebase(u, a.base).String()
}

// fetchPublic reads the public post page and downloads the og:video or og:image
func (a *InstagramAdapter) fetchPublic(ctx context.Context, shortcode string) (*domain.RetrievedAsset, error) {
	p := domain.PlatformInstagram

	page, err := a.fetcher.Get(ctx, p, a.endpoint("/p/"+shortcode+"/"), nil)
	if err != nil {
		return nil, err
	}
	if isInstagramLoginWall(page) {
		return nil, domain.ErrAccessRestricted(p, "post is private or requires login", nil)
	}

	doc, err := parseHTML(p, page.Body)
	if err != nil {
		return nil, err
	}

	mediaURL := metaContent(doc, "og:video:secure_url")
	if mediaURL == "" {
		mediaURL = metaContent(doc, "og:video")
	}
	if mediaURL == "" {
		mediaURL = metaContent(doc, "og:image")
	}
	if mediaURL == "" {
		return nil, domain.ErrAccessRestricted(p, "no public media found; the post may be private", nil)
	}
	mediaURL = resolveReference(page.FinalURL, mediaURL)

	a.logger.Debug("Downloading public Instagram media",
		zap.String("shortcode", shortcode),
		zap.String("media_url", mediaURL))

	media, err := a.fetcher.Get(ctx, p, mediaURL, nil)
	if err != nil {
		return nil, err
	}

	asset := instagramAsset(shortcode, mediaURL, media)
	asset.Record = map[string]any{
		"shortcode":   shortcode,
		"media_url":   mediaURL,
		"description": metaContent(doc, "og:description"),
	}
	return asset, nil
}

// isInstagramLoginWall detects the login redirect served for private content
func isInstagramLoginWall(page *fetchResult) bool {
	if page.FinalURL != nil && strings.Contains(page.FinalURL.Path, "/accounts/login") {
		return true
	}
	return containsAny(string(page.Body), "This Account is Private", `"is_private":true`, `id="loginForm"`)
}

// fetchAuthenticated resolves the media through the private API
func (a *InstagramAdapter) fetchAuthenticated(ctx context.Context, shortcode string, login *domain.InstagramCredentials) (*domain.RetrievedAsset, error) {
	p := domain.PlatformInstagram

	key := instagramSessionKey(login)
	session, err := a.session(ctx, key, login)
	if err != nil {
		return nil, err
	}

	mediaID, err := shortcodeToMediaID(shortcode)
	if err != nil {
		return nil, domain.ErrMalformed(p, fmt.Sprintf("invalid Instagram shortcode %q", shortcode))
	}

	header := http.Header{}
	header.Set("X-IG-App-ID", instagramAppID)
	header.Set("X-CSRFToken", session.csrfToken)
	header.Set("X-Requested-With", "XMLHttpRequest")

	info, err := a.fetcher.do(ctx, p, http.MethodGet, a.endpoint("/api/v1/media/"+mediaID+"/info/"), header, nil, session.client)
	if err != nil {
		if re := domain.AsRetrievalError(p, err); re.Category == domain.CategoryAccessRestricted {
			a.dropSession(key)
		}
		return nil, err
	}

	item := gjson.GetBytes(info.Body, "items.0")
	if !item.Exists() {
		if gjson.GetBytes(info.Body, "require_login").Bool() {
			a.dropSession(key)
			return nil, domain.ErrAccessRestricted(p, "Instagram session expired", nil)
		}
		return nil, domain.ErrUnavailable(p, "post not found", nil)
	}

	mediaURL := instagramMediaURL(item)
	if mediaURL == "" {
		return nil, domain.ErrUnavailable(p, "post has no downloadable media", nil)
	}

	a.logger.Debug("Downloading Instagram media",
		zap.String("shortcode", shortcode),
		zap.String("media_id", mediaID))

	media, err := a.fetcher.do(ctx, p, http.MethodGet, mediaURL, nil, nil, session.client)
	if err != nil {
		return nil, err
	}

	asset := instagramAsset(shortcode, mediaURL, media)
	asset.Record = map[string]any{
		"shortcode": shortcode,
		"media_id":  mediaID,
		"media_url": mediaURL,
		"owner":     item.Get("user.username").String(),
		"caption":   item.Get("caption.text").String(),
	}
	return asset, nil
}

// instagramMediaURL picks the best video or image of an API media item.
// Carousels yield their first entry.
func instagramMediaURL(item gjson.Result) string {
	for _, path := range []string{
		"video_versions.0.url",
		"image_versions2.candidates.0.url",
		"carousel_media.0.video_versions.0.url",
		"carousel_media.0.image_versions2.candidates.0.url",
	} {
		if v := item.Get(path).String(); v != "" {
			return v
		}
	}
	return ""
}

func instagramAsset(shortcode, mediaURL string, media *fetchResult) *domain.RetrievedAsset {
	fallback := ".jpg"
	if strings.HasPrefix(media.MediaType(), "video/") {
		fallback = ".mp4"
	}
	ext := extensionFor(mediaURL, media.ContentType, fallback)
	return domain.NewBinaryAsset(domain.PlatformInstagram, media.Body, media.MediaType(),
		fmt.Sprintf("instagram_%s%s", shortcode, ext))
}

// instagramSessionKey identifies a credential bundle without keeping the password
func instagramSessionKey(login *domain.InstagramCredentials) string {
	sum := sha256.Sum256([]byte(login.Username + "\x00" + login.Password))
	return hex.EncodeToString(sum[:])
}

// session returns the cached session for key, logging in when it is
// missing or older than instagramSessionMaxAge
func (a *InstagramAdapter) session(ctx context.Context, key string, login *domain.InstagramCredentials) (*instagramSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[key]; ok {
		if time.Since(s.createdAt) < instagramSessionMaxAge {
			return s, nil
		}
		delete(a.sessions, key)
	}

	s, err := a.login(ctx, login)
	if err != nil {
		return nil, err
	}
	a.sessions[key] = s
	a.logger.Info("Instagram session established", zap.String("username", login.Username))
	return s, nil
}

func (a *InstagramAdapter) dropSession(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, key)
}

// login performs the web login flow on a fresh cookie jar
func (a *InstagramAdapter) login(ctx context.Context, login *domain.InstagramCredentials) (*instagramSession, error) {
	p := domain.PlatformInstagram

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, domain.ErrTransient(p, "failed to create cookie jar", err)
	}
	client := &http.Client{
		Transport: a.fetcher.client.Transport,
		Timeout:   a.fetcher.client.Timeout,
		Jar:       jar,
	}

	loginPage := a.endpoint("/accounts/login/")
	page, err := a.fetcher.do(ctx, p, http.MethodGet, loginPage, nil, nil, client)
	if err != nil {
		return nil, err
	}

	csrf := csrfFromJar(jar, loginPage)
	if csrf == "" {
		if m := instagramCSRFPattern.FindSubmatch(page.Body); m != nil {
			csrf = string(m[1])
		}
	}
	if csrf == "" {
		return nil, domain.ErrBlocked(p, "Instagram did not issue a CSRF token", nil)
	}

	form := url.Values{}
	form.Set("username", login.Username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), login.Password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("X-CSRFToken", csrf)
	header.Set("X-IG-App-ID", instagramAppID)
	header.Set("X-Requested-With", "XMLHttpRequest")
	header.Set("Referer", loginPage)

	rsp, err := a.fetcher.do(ctx, p, http.MethodPost, a.endpoint("/api/v1/web/accounts/login/ajax/"), header,
		strings.NewReader(form.Encode()), client)
	if err != nil {
		// Instagram answers rejected logins with a 400
		if re := domain.AsRetrievalError(p, err); re.Category == domain.CategoryContentUnavailable {
			return nil, domain.ErrAccessRestricted(p, "Instagram login rejected", err)
		}
		return nil, err
	}

	switch {
	case gjson.GetBytes(rsp.Body, "authenticated").Bool():
	case gjson.GetBytes(rsp.Body, "two_factor_required").Bool():
		return nil, domain.ErrAccessRestricted(p, "two-factor authentication is not supported", nil)
	case gjson.GetBytes(rsp.Body, "checkpoint_url").Exists():
		return nil, domain.ErrAccessRestricted(p, "Instagram requires a security checkpoint for this account", nil)
	default:
		return nil, domain.ErrAccessRestricted(p, "Instagram login failed: invalid credentials", nil)
	}

	if fresh := csrfFromJar(jar, loginPage); fresh != "" {
		csrf = fresh
	}
	return &instagramSession{
		client:    client,
		csrfToken: csrf,
		createdAt: time.Now(),
	}, nil
}

func csrfFromJar(jar http.CookieJar, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == "csrftoken" {
			return c.Value
		}
	}
	return ""
}

// shortcodeToMediaID decodes a post shortcode into its numeric media id
func shortcodeToMediaID(shortcode string) (string, error) {
	id := new(big.Int)
	for _, c := range shortcode {
		idx := strings.IndexRune(instagramAlphabet, c)
		if idx < 0 {
			return "", fmt.Errorf("invalid shortcode character %q", c)
		}
		id.Mul(id, big.NewInt(64))
		id.Add(id, big.NewInt(int64(idx)))
	}
	if id.IsUint64() {
		return strconv.FormatUint(id.Uint64(), 10), nil
	}
	return id.String(), nil
}
