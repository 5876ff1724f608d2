package domain

import (
	"net/url"
	"strings"
)

// Platform represents the source platform of a content URL
type Platform string

const (
	PlatformYouTube     Platform = "youtube"
	PlatformInstagram   Platform = "instagram"
	PlatformTikTok      Platform = "tiktok"
	PlatformFreepik     Platform = "freepik"
	PlatformDribbble    Platform = "dribbble"
	PlatformSpotify     Platform = "spotify"
	PlatformLottieFiles Platform = "lottiefiles"
	PlatformUnsupported Platform = "unsupported"
)

// platformRule maps host substrings to a platform.
type platformRule struct {
	platform Platform
	hosts    []string
}

// platformTable is checked in order; the first matching rule wins.
var platformTable = []platformRule{
	{PlatformYouTube, []string{"youtube.com", "youtu.be"}},
	{PlatformInstagram, []string{"instagram.com"}},
	{PlatformTikTok, []string{"tiktok.com"}},
	{PlatformFreepik, []string{"freepik.com"}},
	{PlatformDribbble, []string{"dribbble.com"}},
	{PlatformSpotify, []string{"spotify.com"}},
	{PlatformLottieFiles, []string{"lottiefiles.com"}},
}

// Classify maps a raw URL to the platform serving it.
// It never fails: anything it cannot recognise is PlatformUnsupported.
func Classify(rawURL string) Platform {
	host := hostOf(rawURL)
	if host == "" {
		return PlatformUnsupported
	}

	for _, rule := range platformTable {
		for _, h := range rule.hosts {
			if strings.Contains(host, h) {
				return rule.platform
			}
		}
	}
	return PlatformUnsupported
}

// hostOf returns the lowercased host of rawURL, assuming https when no
// scheme was given. Only scheme and authority are parsed, so a bad escape
// in the path or query does not hide the host.
func hostOf(rawURL string) string {
	s := NormalizeURL(rawURL)
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}

	u, err := url.Parse(scheme + "://" + rest)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// NormalizeURL trims the URL and adds an https scheme when missing.
func NormalizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s != "" && !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}

// Platforms returns every supported platform in classification order
func Platforms() []Platform {
	platforms := make([]Platform, 0, len(platformTable))
	for _, rule := range platformTable {
		platforms = append(platforms, rule.platform)
	}
	return platforms
}

// Hosts returns the host substrings that classify as p
func (p Platform) Hosts() []string {
	for _, rule := range platformTable {
		if rule.platform == p {
			return append([]string(nil), rule.hosts...)
		}
	}
	return nil
}

// Valid reports whether p is one of the supported platforms
func (p Platform) Valid() bool {
	for _, rule := range platformTable {
		if rule.platform == p {
			return true
		}
	}
	return false
}

// ParsePlatform parses a platform name, case-insensitively.
// Unknown names yield PlatformUnsupported.
func ParsePlatform(name string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	if p.Valid() {
		return p
	}
	return PlatformUnsupported
}

// DisplayName returns a human readable platform name
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformTikTok:
		return "TikTok"
	case PlatformFreepik:
		return "Freepik"
	case PlatformDribbble:
		return "Dribbble"
	case PlatformSpotify:
		return "Spotify"
	case PlatformLottieFiles:
		return "LottieFiles"
	default:
		return "Unsupported"
	}
}

// OutputKind returns the asset kind a platform normally produces.
// TikTok may fall back to KindMetadataRecord when the binary is refused.
func (p Platform) OutputKind() AssetKind {
	switch p {
	case PlatformSpotify:
		return KindMetadataRecord
	case PlatformLottieFiles:
		return KindJSONDocument
	case PlatformUnsupported:
		return ""
	default:
		return KindBinaryFile
	}
}
