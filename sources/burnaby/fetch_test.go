package burnaby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"art-registry/config"
	"art-registry/sources"
)

func testAdapter() *Adapter {
	return NewAdapter(&config.Config{BurnabyBaseURL: "https://burnabyartgallery.ca"}, zap.NewNop())
}

func TestMapRecord(t *testing.T) {
	a := testAdapter()

	rec, err := a.mapRecord(map[string]any{
		"id":     "123",
		"title":  "Steel Fountain",
		"artist": "Jane Doe",
		"medium": "steel",
		"date":   "2001",
		"photo":  "/img/123.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, "burnaby", rec.Source)
	assert.Equal(t, "123", rec.ExternalID)
	assert.Equal(t, []string{"Jane Doe"}, rec.Artists)

	// Relative Foto-Pfade werden gegen die Basis-URL aufgelöst
	assert.Equal(t, []string{"https://burnabyartgallery.ca/img/123.jpg"}, rec.PhotoURLs)

	assert.Equal(t, "steel", rec.Fields["medium"])
	assert.Equal(t, "2001", rec.Fields["date"])
}

func TestMapRecordAbsolutePhotoKept(t *testing.T) {
	a := testAdapter()

	rec, err := a.mapRecord(map[string]any{
		"id":    "124",
		"title": "Mural",
		"photo": "https://cdn.example.com/mural.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/mural.jpg"}, rec.PhotoURLs)
}

func TestMapRecordMissingFields(t *testing.T) {
	a := testAdapter()

	var formatErr *sources.SourceFormatError

	_, err := a.mapRecord(map[string]any{"title": "No ID"})
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "id", formatErr.Field)

	_, err = a.mapRecord(map[string]any{"id": "125"})
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "title", formatErr.Field)
}

func TestMappingDeclaresSpecRenamesAndCityTag(t *testing.T) {
	m := testAdapter().Mapping()
	assert.Equal(t, "material", m.Renames["medium"])
	assert.Equal(t, "start_date", m.Renames["date"])
	assert.Equal(t, "burnaby", m.StaticTags["city"])
}
