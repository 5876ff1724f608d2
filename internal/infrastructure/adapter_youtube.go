package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os/exec"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// YouTubeAdapter implements Adapter for YouTube by driving yt-dlp
type YouTubeAdapter struct {
	config   *domain.YouTubeConfig
	runner   CommandRunner
	maxBytes int64
	logger   *zap.Logger
}

// NewYouTubeAdapter creates a new YouTube adapter; a nil runner uses ExecRunner
func NewYouTubeAdapter(config *domain.YouTubeConfig, runner CommandRunner, maxBytes int64, logger *zap.Logger) *YouTubeAdapter {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YouTubeAdapter{
		config:   config,
		runner:   runner,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Platform returns the platform this adapter handles
func (a *YouTubeAdapter) Platform() domain.Platform {
	return domain.PlatformYouTube
}

// Validate checks the URL and returns the video ID
func (a *YouTubeAdapter) Validate(rawURL string) (string, error) {
	u, err := parsePlatformURL(domain.PlatformYouTube, rawURL)
	if err != nil {
		return "", err
	}

	id := youtubeVideoID(u)
	if id == "" || !youtubeIDPattern.MatchString(id) {
		return "", domain.ErrMalformed(domain.PlatformYouTube, fmt.Sprintf("invalid YouTube URL: %s", rawURL))
	}
	return id, nil
}

// youtubeVideoID extracts the video ID from the supported URL shapes
func youtubeVideoID(u *url.URL) string {
	segments := pathSegments(u.Path)
	if strings.Contains(strings.ToLower(u.Host), "youtu.be") {
		if len(segments) > 0 {
			return segments[0]
		}
		return ""
	}

	if len(segments) == 0 {
		return ""
	}
	switch segments[0] {
	case "watch":
		return u.Query().Get("v")
	case "shorts", "embed", "live", "v":
		if len(segments) > 1 {
			return segments[1]
		}
	}
	return ""
}

// Fetch downloads the video through yt-dlp.
// One metadata probe and one download make up the single attempt.
func (a *YouTubeAdapter) Fetch(ctx context.Context, rawURL string, _ *domain.Credentials) (*domain.RetrievedAsset, error) {
	videoID, err := a.Validate(rawURL)
	if err != nil {
		return nil, err
	}
	target := domain.NormalizeURL(rawURL)

	probeArgs := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"-f", a.config.Format,
		target,
	}
	a.logger.Debug("Probing YouTube video",
		zap.String("cmd", ShellEscapeCommand(a.config.YTDLPBinary, probeArgs...)))

	info, stderr, err := a.runner.Run(ctx, a.config.YTDLPBinary, probeArgs...)
	if err != nil {
		return nil, classifyYTDLPFailure(ctx, err, string(stderr))
	}
	if !gjson.ValidBytes(info) {
		return nil, domain.ErrUnavailable(domain.PlatformYouTube, "yt-dlp returned unreadable video info", nil)
	}

	downloadArgs := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--quiet",
		"-f", a.config.Format,
		"-o", "-",
		target,
	}
	a.logger.Debug("Downloading YouTube video",
		zap.String("cmd", ShellEscapeCommand(a.config.YTDLPBinary, downloadArgs...)))

	downloadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	out := &LimitedBuffer{Max: a.maxBytes, Cancel: cancel}

	stderr, err = a.runner.Stream(downloadCtx, out, a.config.YTDLPBinary, downloadArgs...)
	if out.Exceeded() {
		return nil, domain.ErrUnavailable(domain.PlatformYouTube,
			fmt.Sprintf("video exceeds the %d byte limit", a.maxBytes), ErrOutputLimit)
	}
	if err != nil {
		return nil, classifyYTDLPFailure(ctx, err, string(stderr))
	}
	payload := out.Bytes()
	if len(payload) == 0 {
		return nil, domain.ErrUnavailable(domain.PlatformYouTube, "no suitable video streams found", nil)
	}

	ext := gjson.GetBytes(info, "ext").String()
	if ext == "" {
		ext = "mp4"
	}
	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "video/mp4"
	}

	title := gjson.GetBytes(info, "title").String()
	asset := domain.NewBinaryAsset(domain.PlatformYouTube, payload, contentType, youtubeFilename(title, videoID, ext))
	asset.Record = map[string]any{
		"video_id":    videoID,
		"title":       title,
		"author":      gjson.GetBytes(info, "uploader").String(),
		"length":      gjson.GetBytes(info, "duration").Int(),
		"views":       gjson.GetBytes(info, "view_count").Int(),
		"webpage_url": gjson.GetBytes(info, "webpage_url").String(),
	}
	return asset, nil
}

// youtubeFilename builds "<title-slug>-<id>.<ext>"
func youtubeFilename(title, id, ext string) string {
	if s := slug.Make(title); s != "" {
		return fmt.Sprintf("%s-%s.%s", s, id, ext)
	}
	return fmt.Sprintf("%s.%s", id, ext)
}

// classifyYTDLPFailure maps a yt-dlp failure to a retrieval error using its stderr
func classifyYTDLPFailure(ctx context.Context, err error, stderr string) *domain.RetrievalError {
	p := domain.PlatformYouTube
	msg := lastLine(stderr)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.AsRetrievalError(p, ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return domain.ErrUnavailable(p, "yt-dlp is not installed", err)
	}

	switch {
	case containsAny(stderr, "not a bot", "HTTP Error 403", "HTTP Error 429", "Too Many Requests"):
		return domain.ErrBlocked(p, "access denied, please try again in a few minutes", err)
	case containsAny(stderr, "Private video", "Sign in to confirm your age", "members-only", "login required", "Join this channel"):
		return domain.ErrAccessRestricted(p, msgOr(msg, "video requires sign-in"), err)
	case containsAny(stderr, "Video unavailable", "has been removed", "available in your country", "does not exist", "HTTP Error 404"):
		return domain.ErrUnavailable(p, "video is unavailable (possibly private or deleted)", err)
	case containsAny(stderr, "Unsupported URL", "is not a valid URL", "Incomplete YouTube ID"):
		return domain.ErrMalformed(p, "invalid YouTube URL")
	case containsAny(stderr, "timed out", "Connection reset", "Unable to download webpage", "Temporary failure in name resolution", "Network is unreachable"):
		return domain.ErrTransient(p, msgOr(msg, "network error"), err)
	}
	return domain.ErrTransient(p, msgOr(msg, "YouTube download failed"), err)
}

// lastLine returns the last non-empty line of s
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return strings.TrimPrefix(l, "ERROR: ")
		}
	}
	return ""
}

func msgOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
