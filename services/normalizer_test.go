package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"art-registry/models"
	"art-registry/schema"
	"art-registry/sources"
)

func testSchema(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry([]models.TagKey{
		{Key: "material", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "start_date", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "dimensions", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "city", ValueType: models.TagTypeString, SchemaVersion: 1},
	})
	require.NoError(t, err)
	return r
}

func TestNormalizeVancouverRenames(t *testing.T) {
	mapping := sources.FieldMapping{
		Renames: map[string]string{
			"primarymaterial":   "material",
			"installation_date": "start_date",
			"height":            "dimensions",
		},
	}
	n := NewNormalizer(testSchema(t), mapping, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "vancouver",
		ExternalID: "744",
		Fields: map[string]any{
			"title":             "Brush with Illumination",
			"primarymaterial":   "bronze",
			"installation_date": "1988",
		},
	}

	draft, warnings, err := n.Normalize(rec)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "bronze", draft.Tags["material"])
	assert.Equal(t, "1988", draft.Tags["start_date"])
}

func TestNormalizeBurnabyStaticCityTag(t *testing.T) {
	mapping := sources.FieldMapping{
		Renames: map[string]string{
			"medium": "material",
			"date":   "start_date",
		},
		StaticTags: map[string]string{"city": "burnaby"},
	}
	n := NewNormalizer(testSchema(t), mapping, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "burnaby",
		ExternalID: "123",
		Fields: map[string]any{
			"title":  "Untitled",
			"medium": "steel",
			"date":   "2001",
		},
		PhotoURLs: []string{"https://burnabyartgallery.ca/img/123.jpg"},
	}

	draft, _, err := n.Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "steel", draft.Tags["material"])
	assert.Equal(t, "2001", draft.Tags["start_date"])
	assert.Equal(t, "burnaby", draft.Tags["city"])
	assert.Equal(t, []string{"https://burnabyartgallery.ca/img/123.jpg"}, draft.PhotoURLs)
}

func TestNormalizeDropsUnmappedFieldWithWarning(t *testing.T) {
	n := NewNormalizer(testSchema(t), sources.FieldMapping{}, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "vancouver",
		ExternalID: "1",
		Fields: map[string]any{
			"title":        "Test",
			"neighborhood": "Downtown",
		},
	}

	draft, warnings, err := n.Normalize(rec)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "neighborhood")
	assert.Empty(t, draft.Tags)
}

func TestNormalizeRejectsRenameToUnknownSchemaKey(t *testing.T) {
	mapping := sources.FieldMapping{
		Renames: map[string]string{"colour": "paint_colour"},
	}
	n := NewNormalizer(testSchema(t), mapping, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "vancouver",
		ExternalID: "2",
		Fields:     map[string]any{"title": "Test", "colour": "blue"},
	}

	_, _, err := n.Normalize(rec)
	var violation *schema.SchemaViolationError
	require.ErrorAs(t, err, &violation)
}

func TestNormalizeNumericHeightBecomesDimensionsString(t *testing.T) {
	mapping := sources.FieldMapping{
		Renames: map[string]string{"height": "dimensions"},
	}
	n := NewNormalizer(testSchema(t), mapping, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "vancouver",
		ExternalID: "3",
		Fields:     map[string]any{"title": "Test", "height": 4.20},
	}

	draft, _, err := n.Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "4.2", draft.Tags["dimensions"])
}

func TestNormalizeIsDeterministic(t *testing.T) {
	mapping := sources.FieldMapping{
		Renames: map[string]string{"primarymaterial": "material"},
	}
	n := NewNormalizer(testSchema(t), mapping, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "vancouver",
		ExternalID: "4",
		Fields: map[string]any{
			"title":           "Same In Same Out",
			"primarymaterial": "granite",
			"unmapped_a":      "x",
			"unmapped_b":      "y",
		},
		Artists:   []string{"Jane Doe"},
		PhotoURLs: []string{"https://example.com/a.jpg"},
	}

	first, firstWarnings, err := n.Normalize(rec)
	require.NoError(t, err)
	second, secondWarnings, err := n.Normalize(rec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstWarnings, secondWarnings)
}

func TestNormalizeDropsNonAbsolutePhotoURL(t *testing.T) {
	n := NewNormalizer(testSchema(t), sources.FieldMapping{}, zap.NewNop())

	rec := &models.RawImportRecord{
		Source:     "burnaby",
		ExternalID: "5",
		Fields:     map[string]any{"title": "Test"},
		PhotoURLs:  []string{"/img/relative.jpg", "https://example.com/ok.jpg"},
	}

	draft, warnings, err := n.Normalize(rec)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"https://example.com/ok.jpg"}, draft.PhotoURLs)
}

func TestSplitKeywords(t *testing.T) {
	got := SplitKeywords("Bronze, statue,  bronze , Harbour,statue")
	assert.Equal(t, []string{"Bronze", "statue", "Harbour"}, got)

	assert.Nil(t, SplitKeywords("  "))
	assert.Nil(t, SplitKeywords(""))
}
