package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImagePathAccepted(t *testing.T) {
	for _, path := range []string{
		"photos/2025/10/15/cached-abc123.jpg",
		"/photos/2025/10/15/cached-abc123.jpg",
		"artworks/x.png",
		"submissions/2024/01/01/abc.webp",
		"originals/foo.jpeg",
	} {
		got, err := ValidateImagePath(path)
		require.NoError(t, err, path)
		assert.NotContains(t, got, "://")
		assert.False(t, got[0] == '/')
	}
}

func TestValidateImagePathRejectsEmbeddedURL(t *testing.T) {
	// Der historische Double-URL-Defekt: Präfix + rohe externe URL
	_, err := ValidateImagePath("medium/https://photos.example.com/x.jpg")
	var malformed *MalformedImagePathError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, KindMalformedImagePath, malformed.Kind())

	// Auch mit erlaubtem Präfix bleibt eine eingebettete URL verboten
	_, err = ValidateImagePath("photos/https://photos.example.com/x.jpg")
	require.ErrorAs(t, err, &malformed)
}

func TestValidateImagePathRejectsBadPrefix(t *testing.T) {
	for _, path := range []string{
		"medium/cached-abc123.jpg",
		"etc/passwd",
		"photosx/a.jpg",
	} {
		_, err := ValidateImagePath(path)
		var prefixErr *InvalidImagePrefixError
		require.ErrorAs(t, err, &prefixErr, path)
		assert.Equal(t, KindInvalidImagePrefix, prefixErr.Kind())
	}
}

func TestValidateImagePathRejectsMalformed(t *testing.T) {
	var malformed *MalformedImagePathError
	for _, path := range []string{
		"",
		"/",
		"photos/../originals/a.jpg",
		"photos\\a.jpg",
		"photos/",
	} {
		_, err := ValidateImagePath(path)
		require.Error(t, err, path)
		if path == "photos/" {
			// Präfix allein ist kein gültiger Objektpfad
			continue
		}
		require.ErrorAs(t, err, &malformed, path)
	}
}
