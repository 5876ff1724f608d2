package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

func TestHTTPFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, domain.DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("X-Test", "yes")
	res, err := NewHTTPFetcher(srv.Client(), "", 0).Get(context.Background(), domain.PlatformFreepik, srv.URL, header)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(res.Body))
	assert.Equal(t, "text/html", res.MediaType())
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHTTPFetcher_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		expected domain.ErrorCategory
	}{
		{http.StatusUnauthorized, domain.CategoryAccessRestricted},
		{http.StatusForbidden, domain.CategoryPlatformBlocked},
		{http.StatusTooManyRequests, domain.CategoryPlatformBlocked},
		{http.StatusNotFound, domain.CategoryContentUnavailable},
		{http.StatusGone, domain.CategoryContentUnavailable},
		{http.StatusUnavailableForLegalReasons, domain.CategoryContentUnavailable},
		{http.StatusTeapot, domain.CategoryContentUnavailable},
		{http.StatusInternalServerError, domain.CategoryTransientNetworkError},
		{http.StatusBadGateway, domain.CategoryTransientNetworkError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(srv.Client(), "", 0).Get(context.Background(), domain.PlatformDribbble, srv.URL, nil)

			var re *domain.RetrievalError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.expected, re.Category)
			assert.Equal(t, domain.PlatformDribbble, re.Platform)
			assert.Equal(t, tt.expected.Retryable(), re.Retryable)
		})
	}
}

func TestHTTPFetcher_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client(), "", 50).Get(context.Background(), domain.PlatformFreepik, srv.URL, nil)
	var re *domain.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, domain.CategoryContentUnavailable, re.Category)

	res, err := NewHTTPFetcher(srv.Client(), "", 100).Get(context.Background(), domain.PlatformFreepik, srv.URL, nil)
	require.NoError(t, err)
	assert.Len(t, res.Body, 100)
}

func TestHTTPFetcher_TransportErrors(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	t.Run("timeout", func(t *testing.T) {
		client := &http.Client{Timeout: 50 * time.Millisecond}
		_, err := NewHTTPFetcher(client, "", 0).Get(context.Background(), domain.PlatformLottieFiles, slow.URL, nil)
		var re *domain.RetrievalError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, domain.CategoryTransientNetworkError, re.Category)
		assert.True(t, re.Retryable)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewHTTPFetcher(nil, "", 0).Get(ctx, domain.PlatformLottieFiles, slow.URL, nil)
		var re *domain.RetrievalError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, domain.CategoryTransientNetworkError, re.Category)
	})

	t.Run("connection refused", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		addr := closed.URL
		closed.Close()

		_, err := NewHTTPFetcher(nil, "", 0).Get(context.Background(), domain.PlatformLottieFiles, addr, nil)
		var re *domain.RetrievalError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, domain.CategoryTransientNetworkError, re.Category)
	})
}

func TestFetchImage_RejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client(), "", 0).fetchImage(context.Background(), domain.PlatformFreepik, srv.URL, "")
	var re *domain.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, domain.CategoryContentUnavailable, re.Category)
}

func TestParsePlatformURL(t *testing.T) {
	u, err := parsePlatformURL(domain.PlatformYouTube, "  youtu.be/abc  ")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "youtu.be", u.Host)

	_, err = parsePlatformURL(domain.PlatformYouTube, "ftp://youtu.be/abc")
	var re *domain.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, domain.CategoryMalformedInput, re.Category)
}

func TestParsePlatformURL_Host(t *testing.T) {
	tests := []struct {
		platform domain.Platform
		url      string
		ok       bool
	}{
		{domain.PlatformFreepik, "https://img.freepik.com/a.jpg", true},
		{domain.PlatformFreepik, "https://FREEPIK.COM./a.jpg", true},
		{domain.PlatformFreepik, "https://freepik.com.attacker.test/x.jpg", false},
		{domain.PlatformFreepik, "https://notfreepik.com/x.jpg", false},
		{domain.PlatformLottieFiles, "https://lottiefiles.com.10.0.0.1.nip.io/a.json", false},
		{domain.PlatformYouTube, "https://m.youtube.com/watch?v=abc", true},
		{domain.PlatformYouTube, "https://youtube.com.spotify.com/watch?v=abc", false},
		{domain.PlatformSpotify, "https://open.spotify.com:443/track/1", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := parsePlatformURL(tt.platform, tt.url)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var re *domain.RetrievalError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, domain.CategoryMalformedInput, re.Category)
		})
	}
}

func TestRebase(t *testing.T) {
	u, _ := url.Parse("https://www.instagram.com/p/abc/?x=1")
	base, _ := url.Parse("http://127.0.0.1:9999")

	assert.Equal(t, "http://127.0.0.1:9999/p/abc/?x=1", rebase(u, base).String())
	assert.Equal(t, u, rebase(u, nil))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("https://x/a.png?w=1", "image/jpeg", ".bin"))
	assert.Equal(t, ".jpg", extensionFor("https://x/a", "image/jpeg", ".bin"))
	assert.Equal(t, ".webp", extensionFor("https://x/a", "image/webp; q=1", ".bin"))
	assert.Equal(t, ".bin", extensionFor("https://x/a", "", ".bin"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "cute-cat_1", baseName("https://www.freepik.com/free-photo/cute-cat_1.htm"))
	assert.Equal(t, "", baseName("https://www.freepik.com/"))
}
