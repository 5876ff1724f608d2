package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/api/handlers"
	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"github.com/yourusername/media-fetch-go/internal/infrastructure"
)

type cannedAdapter struct {
	platform domain.Platform
	asset    *domain.RetrievedAsset
	err      error
	creds    *domain.Credentials
}

func (a *cannedAdapter) Platform() domain.Platform { return a.platform }

func (a *cannedAdapter) Fetch(_ context.Context, _ string, creds *domain.Credentials) (*domain.RetrievedAsset, error) {
	a.creds = creds
	return a.asset, a.err
}

type routerFixture struct {
	router   http.Handler
	adapters map[domain.Platform]*cannedAdapter
}

func newRouterFixture(t *testing.T, checks map[string]handlers.ReadinessCheck) *routerFixture {
	t.Helper()

	adapters := make(map[domain.Platform]*cannedAdapter)
	var list []domain.Adapter
	for _, p := range domain.Platforms() {
		a := &cannedAdapter{platform: p}
		adapters[p] = a
		list = append(list, a)
	}

	adapters[domain.PlatformYouTube].asset = domain.NewBinaryAsset(domain.PlatformYouTube, []byte("fake-mp4"), "video/mp4", "Never Gonna_dQw4w9WgXcQ.mp4")
	adapters[domain.PlatformInstagram].err = domain.ErrAccessRestricted(domain.PlatformInstagram, "post is private or requires login", nil)
	adapters[domain.PlatformSpotify].asset = domain.NewMetadataAsset(domain.PlatformSpotify, map[string]any{"name": "Song", "artist": "Band"}, "spotify_track_x.json")
	adapters[domain.PlatformTikTok].err = domain.ErrBlocked(domain.PlatformTikTok, "challenge page", nil)
	adapters[domain.PlatformLottieFiles].asset = domain.NewJSONAsset(domain.PlatformLottieFiles, []byte(`{"v":"5.7.4","layers":[]}`), "loader.json")

	dispatcher, err := app.NewDispatcher(list, nil)
	require.NoError(t, err)

	repo, err := infrastructure.NewSQLiteHistoryRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	service := app.NewFetchService(dispatcher, app.FetchServiceOptions{Repository: repo}, nil)
	return &routerFixture{
		router:   SetupRouter(service, checks, zap.NewNop()),
		adapters: adapters,
	}
}

func (f *routerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestFetch_BinaryAttachment(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/fetch", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dQw4w9WgXcQ.mp4")
	assert.Equal(t, "youtube", w.Header().Get("X-Source-Platform"))
	assert.Equal(t, "fake-mp4", w.Body.String())
}

func TestFetch_MetadataRecord(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/fetch", map[string]string{"url": "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT"})

	require.Equal(t, http.StatusOK, w.Code)
	var record map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "Song", record["name"])
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

func TestFetch_Envelope(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/fetch?envelope=true", map[string]string{"url": "https://lottiefiles.com/animations/loader"})

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Asset    domain.RetrievedAsset `json:"asset"`
		RecordID string                `json:"record_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, domain.KindJSONDocument, env.Asset.Kind)
	assert.JSONEq(t, `{"v":"5.7.4","layers":[]}`, string(env.Asset.Payload))
	assert.NotEmpty(t, env.RecordID)
}

func TestFetch_ErrorStatuses(t *testing.T) {
	f := newRouterFixture(t, nil)

	tests := []struct {
		url       string
		status    int
		category  domain.ErrorCategory
		retryable bool
	}{
		{"https://www.instagram.com/p/PRIVATE/", http.StatusForbidden, domain.CategoryAccessRestricted, false},
		{"https://www.tiktok.com/@a/video/1", http.StatusTooManyRequests, domain.CategoryPlatformBlocked, true},
		{"https://example.com/video", http.StatusBadRequest, domain.CategoryUnsupportedPlatform, false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/fetch", map[string]string{"url": tt.url})
			require.Equal(t, tt.status, w.Code)

			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.category, resp.Category)
			assert.Equal(t, tt.retryable, resp.Retryable)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestFetch_RequestCredentials(t *testing.T) {
	f := newRouterFixture(t, nil)

	body := map[string]any{
		"url": "https://www.instagram.com/p/PRIVATE/",
		"credentials": map[string]any{
			"instagram": map[string]string{"username": "alice", "password": "pw"},
		},
	}
	f.do(t, http.MethodPost, "/api/v1/fetch", body)

	creds := f.adapters[domain.PlatformInstagram].creds
	login, ok := creds.InstagramLogin()
	require.True(t, ok)
	assert.Equal(t, "alice", login.Username)
}

func TestFetch_BadRequest(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/fetch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusForCategory(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, handlers.StatusForCategory(domain.CategoryMalformedInput))
	assert.Equal(t, http.StatusNotFound, handlers.StatusForCategory(domain.CategoryContentUnavailable))
	assert.Equal(t, http.StatusBadGateway, handlers.StatusForCategory(domain.CategoryTransientNetworkError))
}

func TestClassifyAndPlatforms(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/classify?url=https://vm.tiktok.com/ZMabc/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cls handlers.ClassifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cls))
	assert.Equal(t, domain.PlatformTikTok, cls.Platform)
	assert.True(t, cls.Supported)

	w = f.do(t, http.MethodGet, "/api/v1/classify", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/platforms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var infos []handlers.PlatformInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	assert.Len(t, infos, len(domain.Platforms()))
}

func TestHistoryEndpoints(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.do(t, http.MethodPost, "/api/v1/fetch", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
	f.do(t, http.MethodPost, "/api/v1/fetch", map[string]string{"url": "https://www.tiktok.com/@a/video/1"})

	w := f.do(t, http.MethodGet, "/api/v1/history?outcome=failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []domain.FetchRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, domain.PlatformTikTok, records[0].Platform)

	w = f.do(t, http.MethodGet, "/api/v1/history?platform=TikTok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byPlatform []domain.FetchRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byPlatform))
	require.Len(t, byPlatform, 1)
	assert.Equal(t, domain.PlatformTikTok, byPlatform[0].Platform)

	w = f.do(t, http.MethodGet, "/api/v1/history?platform=myspace", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/history?platform=unsupported", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/history/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.FetchStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Total)

	w = f.do(t, http.MethodGet, "/api/v1/history/"+records[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/history/"+records[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/history/"+records[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	healthy := newRouterFixture(t, map[string]handlers.ReadinessCheck{
		"history": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, healthy.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, healthy.do(t, http.MethodGet, "/ready", nil).Code)

	broken := newRouterFixture(t, map[string]handlers.ReadinessCheck{
		"cache": func(context.Context) error { return errors.New("connection refused") },
	})
	w := broken.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCORSPreflight(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodOptions, "/api/v1/fetch", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	f := newRouterFixture(t, nil)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/nope", nil).Code)
}
