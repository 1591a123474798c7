package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArtistName(t *testing.T) {
	// Namen, die sich nur in Case/Whitespace unterscheiden, fallen auf
	// denselben Deduplizierungs-Schlüssel
	variants := []string{
		"Don Vaughan",
		"don vaughan",
		"  Don   Vaughan ",
		"DON\tVAUGHAN",
	}
	want := NormalizeArtistName(variants[0])
	for _, v := range variants {
		assert.Equal(t, want, NormalizeArtistName(v), v)
	}
	assert.Equal(t, "don vaughan", want)
}

func TestNormalizeArtistNameEmpty(t *testing.T) {
	assert.Empty(t, NormalizeArtistName(""))
	assert.Empty(t, NormalizeArtistName("   "))
}

func TestNormalizeArtistNameDistinctNamesStayDistinct(t *testing.T) {
	assert.NotEqual(t, NormalizeArtistName("Don Vaughan"), NormalizeArtistName("Dan Vaughan"))
}
