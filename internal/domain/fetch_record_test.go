package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFetchRecord(t *testing.T) {
	record := NewFetchRecord("https://youtu.be/abc123", PlatformYouTube)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "https://youtu.be/abc123", record.URL)
	assert.Equal(t, PlatformYouTube, record.Platform)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestFetchRecord_MarkSucceeded(t *testing.T) {
	record := NewFetchRecord("https://youtu.be/abc123", PlatformYouTube)
	asset := NewBinaryAsset(PlatformYouTube, []byte("video"), "video/mp4", "clip.mp4")

	record.MarkSucceeded(asset, 1500*time.Millisecond)

	assert.Equal(t, OutcomeSucceeded, record.Outcome)
	assert.Equal(t, KindBinaryFile, record.Kind)
	assert.Equal(t, "clip.mp4", record.Filename)
	assert.Equal(t, int64(5), record.SizeBytes)
	assert.Equal(t, int64(1500), record.DurationMs)
	assert.False(t, record.IsFailed())
}

func TestFetchRecord_MarkFailed(t *testing.T) {
	record := NewFetchRecord("https://www.tiktok.com/@a/video/1", PlatformTikTok)

	record.MarkFailed(ErrBlocked(PlatformTikTok, "captcha page", nil), time.Second)

	assert.True(t, record.IsFailed())
	assert.Equal(t, CategoryPlatformBlocked, record.Category)
	assert.True(t, record.Retryable)
	assert.Equal(t, "captcha page", record.Message)
}

func TestFetchRecord_MarkFailed_PlainError(t *testing.T) {
	record := NewFetchRecord("https://example.com", PlatformUnsupported)

	record.MarkFailed(errors.New("boom"), 0)

	assert.Equal(t, OutcomeFailed, record.Outcome)
	assert.Equal(t, "boom", record.Message)
	assert.Empty(t, record.Category)
}

func TestValidateOutcome(t *testing.T) {
	assert.True(t, ValidateOutcome(OutcomeSucceeded))
	assert.True(t, ValidateOutcome(OutcomeFailed))
	assert.False(t, ValidateOutcome("invalid"))
}
