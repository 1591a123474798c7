package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyIsStable(t *testing.T) {
	a := CacheKey("https://example.com/sculpture.jpg")
	b := CacheKey("https://example.com/sculpture.jpg")
	c := CacheKey("https://example.com/other.jpg")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 24)
	assert.Regexp(t, "^[a-f0-9]+$", a)
}

func TestBuildCachePath(t *testing.T) {
	fetchedAt := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

	path, err := BuildCachePath("photos", fetchedAt, "abc123def456", "jpg")
	require.NoError(t, err)
	assert.Equal(t, "photos/2025/10/15/abc123def456.jpg", path)

	// Geschriebene Pfade bestehen immer die Lese-Validierung
	validated, err := ValidateImagePath(path)
	require.NoError(t, err)
	assert.Equal(t, path, validated)
}

func TestBuildCachePathRejectsBadNamespace(t *testing.T) {
	fetchedAt := time.Now().UTC()
	_, err := BuildCachePath("medium", fetchedAt, "abc", "jpg")
	require.Error(t, err)

	_, err = BuildCachePath("", fetchedAt, "abc", "jpg")
	require.Error(t, err)
}

func TestBuildCachePathCannotEmbedURL(t *testing.T) {
	fetchedAt := time.Now().UTC()

	// Die Defektklasse: eine rohe URL als Pfadsegment. Der Builder
	// akzeptiert sie weder als Key noch als Extension.
	_, err := BuildCachePath("photos", fetchedAt, "https://photos.example.com/x", "jpg")
	require.Error(t, err)

	_, err = BuildCachePath("photos", fetchedAt, "abc/def", "jpg")
	require.Error(t, err)

	_, err = BuildCachePath("photos", fetchedAt, "abc", "jpg?x=1")
	require.Error(t, err)
}

func TestBuildCachePathNeverContainsScheme(t *testing.T) {
	fetchedAt := time.Now().UTC()
	for _, key := range []string{CacheKey("https://a.example/x.jpg"), CacheKey("http://b.example/y.png")} {
		path, err := BuildCachePath("photos", fetchedAt, key, "jpg")
		require.NoError(t, err)
		assert.False(t, strings.Contains(path, "://"))
	}
}

func TestIsImageMIME(t *testing.T) {
	assert.True(t, isImageMIME("image/jpeg"))
	assert.True(t, isImageMIME("image/png"))
	assert.False(t, isImageMIME("text/html"))
	assert.False(t, isImageMIME("application/pdf"))
}
