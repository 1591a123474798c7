package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"art-registry/models"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]models.TagKey{
		{Key: "material", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "start_date", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "dimensions", ValueType: models.TagTypeString, SchemaVersion: 2},
		{Key: "height_m", ValueType: models.TagTypeNumber, SchemaVersion: 2},
		{Key: "status", ValueType: models.TagTypeEnum, EnumValues: []byte(`["in place","removed"]`), SchemaVersion: 2},
	})
	require.NoError(t, err)
	return r
}

func TestRegistryVersionAndKeys(t *testing.T) {
	r := testRegistry(t)
	assert.Equal(t, 2, r.Version())
	assert.Equal(t, 5, r.Keys())
	assert.True(t, r.Has("material"))
	assert.False(t, r.Has("primarymaterial"))
}

func TestCoerceUnknownKey(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Coerce("colour", "blue")
	require.Error(t, err)
	var violation *SchemaViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "colour", violation.Key)
}

func TestCoerceStringifiesNumbers(t *testing.T) {
	r := testRegistry(t)

	// Legacy-Migration: numerische Quelle auf String-Schlüssel
	got, err := r.Coerce("dimensions", 4.50)
	require.NoError(t, err)
	assert.Equal(t, "4.5", got)

	got, err = r.Coerce("dimensions", float64(12))
	require.NoError(t, err)
	assert.Equal(t, "12", got)
}

func TestCoerceNumberKeepsUnitSuffix(t *testing.T) {
	r := testRegistry(t)

	got, err := r.Coerce("height_m", "3.50 m")
	require.NoError(t, err)
	assert.Equal(t, "3.5 m", got)

	_, err = r.Coerce("height_m", "tall")
	var violation *SchemaViolationError
	require.ErrorAs(t, err, &violation)
}

func TestCoerceEnum(t *testing.T) {
	r := testRegistry(t)

	got, err := r.Coerce("status", "In Place")
	require.NoError(t, err)
	assert.Equal(t, "in place", got)

	_, err = r.Coerce("status", "melted")
	var violation *SchemaViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "status", violation.Key)
}

func TestCoerceEmptyValue(t *testing.T) {
	r := testRegistry(t)
	got, err := r.Coerce("material", "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
