package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// HTTPFetcher performs GET requests on behalf of the adapters and maps
// transport and status failures to retrieval errors.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher creates a fetcher; a nil client uses http.DefaultClient
func NewHTTPFetcher(client *http.Client, userAgent string, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = domain.DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// NewHTTPClient builds the client shared by the adapters
func NewHTTPClient(config *domain.FetchConfig) *http.Client {
	return &http.Client{Timeout: config.Timeout}
}

// fetchResult is a fully read response body
type fetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    *url.URL
	StatusCode  int
}

// MediaType returns the content type without parameters
func (r *fetchResult) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(r.ContentType, ";")[0]))
	}
	return mt
}

// Get fetches rawURL and returns the body of a 2xx response.
// Any failure is returned as a *domain.RetrievalError for platform.
func (f *HTTPFetcher) Get(ctx context.Context, platform domain.Platform, rawURL string, header http.Header) (*fetchResult, error) {
	return f.do(ctx, platform, http.MethodGet, rawURL, header, nil, f.client)
}

// do sends a request with the given client and reads the response
func (f *HTTPFetcher) do(ctx context.Context, platform domain.Platform, method, rawURL string, header http.Header, body io.Reader, client *http.Client) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, domain.ErrMalformed(platform, fmt.Sprintf("invalid request URL %q", rawURL))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	rsp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(platform, err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		// drain a little so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(rsp.Body, 4096))
		return nil, classifyStatus(platform, rsp.StatusCode, rawURL)
	}

	data, err := f.readBody(platform, rsp.Body)
	if err != nil {
		return nil, err
	}

	return &fetchResult{
		Body:        data,
		ContentType: rsp.Header.Get("Content-Type"),
		FinalURL:    rsp.Request.URL,
		StatusCode:  rsp.StatusCode,
	}, nil
}

// readBody reads at most maxBytes from r
func (f *HTTPFetcher) readBody(platform domain.Platform, r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, classifyTransportError(platform, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, classifyTransportError(platform, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, domain.ErrUnavailable(platform,
			fmt.Sprintf("asset exceeds the %d byte limit", f.maxBytes), nil)
	}
	return data, nil
}

// classifyStatus maps a non-2xx HTTP status to a retrieval error
func classifyStatus(platform domain.Platform, status int, rawURL string) *domain.RetrievalError {
	msg := fmt.Sprintf("%s returned HTTP %d", hostForMessage(rawURL), status)
	cause := fmt.Errorf("http status %d", status)

	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrAccessRestricted(platform, msg, cause)
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return domain.ErrBlocked(platform, msg, cause)
	case status == http.StatusNotFound, status == http.StatusGone, status == http.StatusUnavailableForLegalReasons:
		return domain.ErrUnavailable(platform, msg, cause)
	case status >= 500:
		return domain.ErrTransient(platform, msg, cause)
	default:
		return domain.ErrUnavailable(platform, msg, cause)
	}
}

// classifyTransportError maps a client error to a retrieval error
func classifyTransportError(platform domain.Platform, err error) *domain.RetrievalError {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.ErrTransient(platform, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTransient(platform, "request timed out", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return domain.ErrTransient(platform, "request timed out", err)
	}
	return domain.ErrTransient(platform, "network error", err)
}

// hostForMessage returns the host of rawURL, or rawURL itself
func hostForMessage(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// rebase replaces the scheme and host of u with those of base.
// A nil base returns u unchanged.
func rebase(u *url.URL, base *url.URL) *url.URL {
	if base == nil {
		return u
	}
	out := *u
	out.Scheme = base.Scheme
	out.Host = base.Host
	return &out
}

// parseBase parses an optional base URL override
func parseBase(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	return u, nil
}

// parsePlatformURL parses rawURL for an adapter. The host must be one of
// the platform's domains or a subdomain of one.
func parsePlatformURL(platform domain.Platform, rawURL string) (*url.URL, error) {
	u, err := url.Parse(domain.NormalizeURL(rawURL))
	if err != nil || u.Host == "" {
		return nil, domain.ErrMalformed(platform, fmt.Sprintf("invalid URL %q", rawURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, domain.ErrMalformed(platform, fmt.Sprintf("unsupported URL scheme %q", u.Scheme))
	}
	if !platformHost(platform, u.Hostname()) {
		return nil, domain.ErrMalformed(platform, fmt.Sprintf("host %q is not a %s domain", u.Hostname(), platform))
	}
	return u, nil
}

func platformHost(platform domain.Platform, host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, h := range platform.Hosts() {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// pathSegments splits a URL path into its non-empty segments
func pathSegments(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// extensionFor picks a file extension from the URL path or content type
func extensionFor(rawURL, contentType, fallback string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 6 {
			return ext
		}
	}

	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "application/json":
		return ".json"
	}
	return fallback
}

// fetchImage downloads an image and rejects non-image responses
func (f *HTTPFetcher) fetchImage(ctx context.Context, platform domain.Platform, imageURL, referer string) (*fetchResult, error) {
	header := http.Header{}
	header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")
	if referer != "" {
		header.Set("Referer", referer)
	}

	img, err := f.Get(ctx, platform, imageURL, header)
	if err != nil {
		return nil, err
	}
	if mt := img.MediaType(); mt != "" && !strings.HasPrefix(mt, "image/") {
		return nil, domain.ErrUnavailable(platform, fmt.Sprintf("expected an image, got %s", mt), nil)
	}
	return img, nil
}

// baseName returns the last path segment of rawURL without its extension
func baseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
