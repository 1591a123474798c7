package vancouver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"art-registry/config"
	"art-registry/sources"
)

func testAdapter() *Adapter {
	return NewAdapter(&config.Config{}, zap.NewNop())
}

func TestMapRecord(t *testing.T) {
	a := testAdapter()

	rec, err := a.mapRecord(map[string]any{
		"registryid":        float64(744),
		"title_of_work":     "Brush with Illumination",
		"descriptionofwork": "Sculpture in False Creek",
		"artists":           []any{"Buster Simpson"},
		"keywords":          "sculpture, water",
		"primarymaterial":   "bronze",
		"installation_date": "1988",
		"photourl":          map[string]any{"url": "https://opendata.vancouver.ca/img/744.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "vancouver", rec.Source)
	assert.Equal(t, "744", rec.ExternalID)
	assert.Equal(t, "Brush with Illumination", rec.Fields["title"])
	assert.Equal(t, []string{"Buster Simpson"}, rec.Artists)
	assert.Equal(t, []string{"https://opendata.vancouver.ca/img/744.jpg"}, rec.PhotoURLs)

	// Tag-Kandidaten werden unverändert durchgereicht
	assert.Equal(t, "bronze", rec.Fields["primarymaterial"])
	assert.Equal(t, "1988", rec.Fields["installation_date"])
}

func TestMapRecordSemicolonArtists(t *testing.T) {
	a := testAdapter()

	rec, err := a.mapRecord(map[string]any{
		"registryid":    "10",
		"title_of_work": "Collab",
		"artists":       "Jane Doe; John Roe ;",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, rec.Artists)
}

func TestMapRecordNoArtistsIsValid(t *testing.T) {
	a := testAdapter()

	rec, err := a.mapRecord(map[string]any{
		"registryid":    "11",
		"title_of_work": "Anonymous Work",
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Artists)
}

func TestMapRecordMissingRequiredFields(t *testing.T) {
	a := testAdapter()

	var formatErr *sources.SourceFormatError

	_, err := a.mapRecord(map[string]any{"title_of_work": "No ID"})
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "registryid", formatErr.Field)

	_, err = a.mapRecord(map[string]any{"registryid": "12"})
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "title_of_work", formatErr.Field)
}

func TestMapRecordBadArtistShape(t *testing.T) {
	a := testAdapter()

	_, err := a.mapRecord(map[string]any{
		"registryid":    "13",
		"title_of_work": "Bad Artists",
		"artists":       42.0,
	})
	var formatErr *sources.SourceFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "artists", formatErr.Field)
}

func TestMappingDeclaresSpecRenames(t *testing.T) {
	m := testAdapter().Mapping()
	assert.Equal(t, "material", m.Renames["primarymaterial"])
	assert.Equal(t, "start_date", m.Renames["installation_date"])
	assert.Equal(t, "dimensions", m.Renames["height"])
}
