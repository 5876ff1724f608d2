package domain

// AssetKind represents the shape of a retrieved asset
type AssetKind string

const (
	KindBinaryFile     AssetKind = "binary_file"
	KindJSONDocument   AssetKind = "json_document"
	KindMetadataRecord AssetKind = "metadata_record"
)

// Valid checks if an asset kind is known
func (k AssetKind) Valid() bool {
	return k == KindBinaryFile || k == KindJSONDocument || k == KindMetadataRecord
}

// InstagramCredentials holds an Instagram login
type InstagramCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SpotifyCredentials holds Spotify Web API client credentials
type SpotifyCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Credentials is the optional per-platform authentication bundle.
// Values are already resolved; nothing in the core reads them from the
// environment.
type Credentials struct {
	Instagram *InstagramCredentials `json:"instagram,omitempty"`
	Spotify   *SpotifyCredentials   `json:"spotify,omitempty"`
}

// InstagramLogin returns the Instagram credentials if both fields are set
func (c *Credentials) InstagramLogin() (*InstagramCredentials, bool) {
	if c == nil || c.Instagram == nil {
		return nil, false
	}
	if c.Instagram.Username == "" || c.Instagram.Password == "" {
		return nil, false
	}
	return c.Instagram, true
}

// SpotifyClient returns the Spotify credentials if both fields are set
func (c *Credentials) SpotifyClient() (*SpotifyCredentials, bool) {
	if c == nil || c.Spotify == nil {
		return nil, false
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return nil, false
	}
	return c.Spotify, true
}

// Merge returns a bundle where every part set in override replaces base.
// Neither argument is modified.
func (c *Credentials) Merge(override *Credentials) *Credentials {
	merged := &Credentials{}
	if c != nil {
		merged.Instagram = c.Instagram
		merged.Spotify = c.Spotify
	}
	if override != nil {
		if override.Instagram != nil {
			merged.Instagram = override.Instagram
		}
		if override.Spotify != nil {
			merged.Spotify = override.Spotify
		}
	}
	if merged.Instagram == nil && merged.Spotify == nil {
		return nil
	}
	return merged
}

// DownloadRequest is a single user retrieval request
type DownloadRequest struct {
	RawURL      string
	Platform    Platform
	Credentials *Credentials
}

// NewDownloadRequest classifies rawURL and builds a request for it
func NewDownloadRequest(rawURL string, creds *Credentials) *DownloadRequest {
	normalized := NormalizeURL(rawURL)
	return &DownloadRequest{
		RawURL:      normalized,
		Platform:    Classify(normalized),
		Credentials: creds,
	}
}

// RetrievedAsset is the normalized result of a successful retrieval
type RetrievedAsset struct {
	Kind              AssetKind      `json:"kind"`
	Payload           []byte         `json:"payload,omitempty"`
	Record            map[string]any `json:"record,omitempty"`
	ContentType       string         `json:"content_type"`
	SuggestedFilename string         `json:"suggested_filename"`
	SourcePlatform    Platform       `json:"source_platform"`
}

// Size returns the payload size in bytes
func (a *RetrievedAsset) Size() int {
	return len(a.Payload)
}

// NewBinaryAsset creates a binary file asset
func NewBinaryAsset(platform Platform, payload []byte, contentType, filename string) *RetrievedAsset {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &RetrievedAsset{
		Kind:              KindBinaryFile,
		Payload:           payload,
		ContentType:       contentType,
		SuggestedFilename: filename,
		SourcePlatform:    platform,
	}
}

// NewJSONAsset creates a JSON document asset
func NewJSONAsset(platform Platform, payload []byte, filename string) *RetrievedAsset {
	return &RetrievedAsset{
		Kind:              KindJSONDocument,
		Payload:           payload,
		ContentType:       "application/json",
		SuggestedFilename: filename,
		SourcePlatform:    platform,
	}
}

// NewMetadataAsset creates a metadata record asset
func NewMetadataAsset(platform Platform, record map[string]any, filename string) *RetrievedAsset {
	return &RetrievedAsset{
		Kind:              KindMetadataRecord,
		Record:            record,
		ContentType:       "application/json",
		SuggestedFilename: filename,
		SourcePlatform:    platform,
	}
}
