package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://youtu.be/abc123", PlatformYouTube},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube},
		{"https://m.youtube.com/shorts/abc", PlatformYouTube},
		{"https://www.instagram.com/p/XYZ/", PlatformInstagram},
		{"https://www.tiktok.com/@user/video/7234567890123456789", PlatformTikTok},
		{"https://vm.tiktok.com/ZMabc/", PlatformTikTok},
		{"https://www.freepik.com/free-photo/cat_123.htm", PlatformFreepik},
		{"https://img.freepik.com/free-photo/cat.jpg", PlatformFreepik},
		{"https://dribbble.com/shots/12345-Logo", PlatformDribbble},
		{"https://open.spotify.com/track/123", PlatformSpotify},
		{"https://lottiefiles.com/animations/loader-abc", PlatformLottieFiles},
		{"https://assets5.lottiefiles.com/packages/lf20_x.json", PlatformLottieFiles},
		{"HTTPS://WWW.YOUTUBE.COM/watch?v=x", PlatformYouTube},
		{"youtu.be/abc123", PlatformYouTube},
		{"  https://open.spotify.com/track/123  ", PlatformSpotify},
		{"https://example.com/cat.jpg", PlatformUnsupported},
		{"https://example.com/?next=youtube.com", PlatformUnsupported},
		{"", PlatformUnsupported},
		{"not a url", PlatformUnsupported},
		{"http://[::1", PlatformUnsupported},
		{"https://youtu.be/%zz", PlatformYouTube},
		{"https://www.instagram.com/p/x/?q=%gg#frag", PlatformInstagram},
		{"https://user@dribbble.com:443/shots/1", PlatformDribbble},
		{"https://example.com/%zz", PlatformUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.url))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	urls := []string{"https://youtu.be/abc123", "https://example.com", "https://open.spotify.com/track/1"}
	for _, u := range urls {
		assert.Equal(t, Classify(u), Classify(u))
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	// matches both the youtube and spotify rules
	assert.Equal(t, PlatformYouTube, Classify("https://youtube.com.spotify.com/x"))
	assert.Equal(t, PlatformInstagram, Classify("https://instagram.com.tiktok.com/x"))
}

func TestPlatforms(t *testing.T) {
	platforms := Platforms()

	assert.Equal(t, []Platform{
		PlatformYouTube,
		PlatformInstagram,
		PlatformTikTok,
		PlatformFreepik,
		PlatformDribbble,
		PlatformSpotify,
		PlatformLottieFiles,
	}, platforms)
	assert.NotContains(t, platforms, PlatformUnsupported)

	for _, p := range platforms {
		assert.True(t, p.Valid())
		assert.NotEmpty(t, p.Hosts())
		assert.True(t, p.OutputKind().Valid())
		assert.NotEqual(t, "Unsupported", p.DisplayName())
	}
}

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, PlatformSpotify, ParsePlatform("Spotify"))
	assert.Equal(t, PlatformTikTok, ParsePlatform(" tiktok "))
	assert.Equal(t, PlatformUnsupported, ParsePlatform("myspace"))
	assert.Equal(t, PlatformUnsupported, ParsePlatform("unsupported"))
	assert.False(t, PlatformUnsupported.Valid())
}

func TestOutputKind(t *testing.T) {
	assert.Equal(t, KindMetadataRecord, PlatformSpotify.OutputKind())
	assert.Equal(t, KindJSONDocument, PlatformLottieFiles.OutputKind())
	assert.Equal(t, KindBinaryFile, PlatformYouTube.OutputKind())
	assert.Equal(t, AssetKind(""), PlatformUnsupported.OutputKind())
}

func TestNewDownloadRequest(t *testing.T) {
	req := NewDownloadRequest(" youtu.be/abc123 ", nil)

	assert.Equal(t, "https://youtu.be/abc123", req.RawURL)
	assert.Equal(t, PlatformYouTube, req.Platform)
	assert.Nil(t, req.Credentials)
}
