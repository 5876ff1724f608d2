package main

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentFilename(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="Never Gonna_dQw4w9WgXcQ.mp4"`)
	assert.Equal(t, "Never Gonna_dQw4w9WgXcQ.mp4", attachmentFilename(h))

	h.Set("Content-Disposition", `attachment; filename="../../etc/passwd"`)
	assert.Equal(t, "passwd", attachmentFilename(h))

	assert.Empty(t, attachmentFilename(http.Header{}))
}

func TestSaveAsset_IntoDirectory(t *testing.T) {
	dir := t.TempDir()
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="dribbble_123.png"`)

	path, err := saveAsset(h, []byte("png"), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dribbble_123.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestSaveAsset_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")

	got, err := saveAsset(http.Header{}, []byte(`{"name":"Song"}`), path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t,
		"tiktok [platform_blocked] challenge page (retryable)",
		describeError([]byte(`{"platform":"tiktok","category":"platform_blocked","message":"challenge page","retryable":true}`)))
	assert.Equal(t,
		"[unsupported_platform] no adapter for this URL",
		describeError([]byte(`{"platform":"unsupported","category":"unsupported_platform","message":"no adapter for this URL"}`)))
	assert.Equal(t, "record not found", describeError([]byte(`{"error":"record not found"}`)))
	assert.Equal(t, "bad gateway", describeError([]byte("bad gateway\n")))
}
