package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

const (
	spotifyOEmbedURL = "https://open.spotify.com/oembed"
	spotifyOpenHost  = "open.spotify.com"
)

var spotifyIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// spotifyKinds are the resource types the adapter understands
var spotifyKinds = map[string]bool{
	"track": true, "album": true, "playlist": true, "artist": true, "episode": true, "show": true,
}

// SpotifyEndpoints overrides the Spotify service URLs; empty fields use production
type SpotifyEndpoints struct {
	APIBaseURL string // must end in a slash, e.g. https://api.spotify.com/v1/
	TokenURL   string
	OEmbedURL  string
}

// SpotifyAdapter implements Adapter for Spotify. It only ever returns
// metadata records; audio is never downloaded.
type SpotifyAdapter struct {
	fetcher   *HTTPFetcher
	endpoints SpotifyEndpoints
	logger    *zap.Logger
}

// NewSpotifyAdapter creates a new Spotify adapter
func NewSpotifyAdapter(fetcher *HTTPFetcher, endpoints SpotifyEndpoints, logger *zap.Logger) *SpotifyAdapter {
	if endpoints.TokenURL == "" {
		endpoints.TokenURL = spotifyauth.TokenURL
	}
	if endpoints.OEmbedURL == "" {
		endpoints.OEmbedURL = spotifyOEmbedURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpotifyAdapter{
		fetcher:   fetcher,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Platform returns the platform this adapter handles
func (a *SpotifyAdapter) Platform() domain.Platform {
	return domain.PlatformSpotify
}

// spotifyResource identifies one Spotify object
type spotifyResource struct {
	Kind string
	ID   string
}

// URL returns the canonical open.spotify.com URL
func (r spotifyResource) URL() string {
	return fmt.Sprintf("https://%s/%s/%s", spotifyOpenHost, r.Kind, r.ID)
}

// Validate parses /<kind>/<id>, allowing /intl-xx/ and /embed/ prefixes
func (a *SpotifyAdapter) Validate(rawURL string) (spotifyResource, error) {
	u, err := parsePlatformURL(domain.PlatformSpotify, rawURL)
	if err != nil {
		return spotifyResource{}, err
	}

	segments := pathSegments(u.Path)
	for len(segments) > 0 && (strings.HasPrefix(segments[0], "intl-") || segments[0] == "embed") {
		segments = segments[1:]
	}

	if len(segments) >= 2 && spotifyKinds[segments[0]] && spotifyIDPattern.MatchString(segments[1]) {
		return spotifyResource{Kind: segments[0], ID: segments[1]}, nil
	}
	return spotifyResource{}, domain.ErrMalformed(domain.PlatformSpotify,
		fmt.Sprintf("not a Spotify track, album, playlist, artist, episode or show URL: %s", rawURL))
}

// Fetch returns the metadata of the resource
func (a *SpotifyAdapter) Fetch(ctx context.Context, rawURL string, creds *domain.Credentials) (*domain.RetrievedAsset, error) {
	res, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	client, useAPI := creds.SpotifyClient()
	if useAPI && res.Kind != "episode" && res.Kind != "show" {
		record, err = a.fetchAPI(ctx, res, client)
	} else {
		record, err = a.fetchOEmbed(ctx, res)
	}
	if err != nil {
		return nil, err
	}

	return domain.NewMetadataAsset(domain.PlatformSpotify, record,
		fmt.Sprintf("spotify_%s_%s.json", res.Kind, res.ID)), nil
}

// apiClient builds a Web API client authorised with client credentials.
// A new token source is created per request.
func (a *SpotifyAdapter) apiClient(ctx context.Context, creds *domain.SpotifyCredentials) *spotify.Client {
	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     a.endpoints.TokenURL,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.fetcher.client)

	var opts []spotify.ClientOption
	if a.endpoints.APIBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(a.endpoints.APIBaseURL))
	}
	return spotify.New(config.Client(ctx), opts...)
}

func (a *SpotifyAdapter) fetchAPI(ctx context.Context, res spotifyResource, creds *domain.SpotifyCredentials) (map[string]any, error) {
	client := a.apiClient(ctx, creds)
	id := spotify.ID(res.ID)

	a.logger.Debug("Querying Spotify Web API",
		zap.String("kind", res.Kind),
		zap.String("id", res.ID))

	record := map[string]any{
		"type":   res.Kind,
		"id":     res.ID,
		"url":    res.URL(),
		"source": "web_api",
	}

	var details any
	switch res.Kind {
	case "track":
		track, err := client.GetTrack(ctx, id)
		if err != nil {
			return nil, spotifyError(ctx, err)
		}
		record["name"] = track.Name
		record["artists"] = artistNames(track.Artists)
		if len(track.Artists) > 0 {
			record["artist"] = track.Artists[0].Name
		}
		record["album"] = track.Album.Name
		record["duration_ms"] = int64(track.Duration)
		record["popularity"] = int(track.Popularity)
		details = track
	case "album":
		album, err := client.GetAlbum(ctx, id)
		if err != nil {
			return nil, spotifyError(ctx, err)
		}
		record["name"] = album.Name
		record["artists"] = artistNames(album.Artists)
		record["release_date"] = album.ReleaseDate
		details = album
	case "playlist":
		playlist, err := client.GetPlaylist(ctx, id)
		if err != nil {
			return nil, spotifyError(ctx, err)
		}
		record["name"] = playlist.Name
		record["description"] = playlist.Description
		record["owner"] = playlist.Owner.DisplayName
		details = playlist
	case "artist":
		artist, err := client.GetArtist(ctx, id)
		if err != nil {
			return nil, spotifyError(ctx, err)
		}
		record["name"] = artist.Name
		record["genres"] = artist.Genres
		record["popularity"] = int(artist.Popularity)
		details = artist
	default:
		return nil, domain.ErrMalformed(domain.PlatformSpotify, fmt.Sprintf("unsupported Spotify resource %q", res.Kind))
	}

	if raw, err := toRecord(details); err == nil {
		record["details"] = raw
	}
	return record, nil
}

func (a *SpotifyAdapter) fetchOEmbed(ctx context.Context, res spotifyResource) (map[string]any, error) {
	q := url.Values{}
	q.Set("url", res.URL())
	endpoint := a.endpoints.OEmbedURL + "?" + q.Encode()

	header := http.Header{}
	header.Set("Accept", "application/json")
	rsp, err := a.fetcher.Get(ctx, domain.PlatformSpotify, endpoint, header)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(rsp.Body) {
		return nil, domain.ErrUnavailable(domain.PlatformSpotify, "oEmbed response is not valid JSON", nil)
	}

	title := gjson.GetBytes(rsp.Body, "title").String()
	if title == "" {
		return nil, domain.ErrUnavailable(domain.PlatformSpotify, "oEmbed response has no title", nil)
	}

	return map[string]any{
		"type":          res.Kind,
		"id":            res.ID,
		"url":           res.URL(),
		"source":        "oembed",
		"name":          title,
		"thumbnail_url": gjson.GetBytes(rsp.Body, "thumbnail_url").String(),
		"provider":      gjson.GetBytes(rsp.Body, "provider_name").String(),
	}, nil
}

// spotifyError maps Web API and token errors to retrieval errors
func spotifyError(ctx context.Context, err error) *domain.RetrievalError {
	p := domain.PlatformSpotify
	if ctx.Err() != nil {
		return domain.AsRetrievalError(p, ctx.Err())
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		if tokenErr.Response != nil && tokenErr.Response.StatusCode >= 500 {
			return domain.ErrTransient(p, "Spotify token endpoint failed", err)
		}
		return domain.ErrAccessRestricted(p, "Spotify rejected the client credentials", err)
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusBadRequest {
			return domain.ErrMalformed(p, fmt.Sprintf("Spotify rejected the request: %s", apiErr.Message))
		}
		re := classifyStatus(p, apiErr.Status, "api.spotify.com")
		if apiErr.Message != "" {
			re.Message = apiErr.Message
		}
		re.Err = err
		return re
	}

	return classifyTransportError(p, err)
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

// toRecord converts an API object into a generic JSON map
func toRecord(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
