package layers

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapefile_PointRoundTrip(t *testing.T) {
	surveyed := time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)
	layer := NewMemoryLayer("addresses", []transfer.Field{
		{Name: "number", Type: transfer.FieldTypeInteger},
		{Name: "area", Type: transfer.FieldTypeReal},
		{Name: "street", Type: transfer.FieldTypeString},
		{Name: "surveyed", Type: transfer.FieldTypeDate},
		{Name: "active", Type: transfer.FieldTypeBoolean},
	})
	layer.Add(mustWKT(t, "POINT (1 2)"), int64(12), 1.5, "Main", surveyed, true)
	layer.Add(mustWKT(t, "POINT (3 4)"), nil, nil, nil, nil, false)

	path := filepath.Join(t.TempDir(), "addresses.shp")
	require.NoError(t, WriteShapefile(path, layer))

	loaded, err := ReadShapefile(path, ReadOptions{ReadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "addresses", loaded.Name())
	assert.False(t, loaded.IsEditable())
	assert.Equal(t, layer.Fields(), loaded.Fields())

	require.Equal(t, 2, loaded.Len())
	first, ok := loaded.Feature(0)
	require.True(t, ok)
	assert.Equal(t, []any{int64(12), 1.5, "Main", surveyed, true}, first.Attributes)
	assert.True(t, mustWKT(t, "POINT (1 2)").Equals(first.Geometry))

	second, ok := loaded.Feature(1)
	require.True(t, ok)
	assert.Equal(t, []any{nil, nil, nil, nil, false}, second.Attributes)
}

func TestShapefile_PolygonRoundTrip(t *testing.T) {
	shapes := []string{
		"POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0), (2 2, 2 4, 4 4, 4 2, 2 2))",
		"MULTIPOLYGON (((20 0, 30 0, 30 10, 20 10, 20 0)), ((40 0, 50 0, 50 10, 40 10, 40 0)))",
	}
	layer := NewMemoryLayer("zones", []transfer.Field{{Name: "zone", Type: transfer.FieldTypeString}})
	for i, wkt := range shapes {
		layer.Add(mustWKT(t, wkt), string(rune('A'+i)))
	}

	path := filepath.Join(t.TempDir(), "zones.shp")
	require.NoError(t, WriteShapefile(path, layer))

	loaded, err := ReadShapefile(path, ReadOptions{Name: "loaded"})
	require.NoError(t, err)
	assert.Equal(t, "loaded", loaded.Name())
	require.Equal(t, len(shapes), loaded.Len())

	for i, wkt := range shapes {
		f, ok := loaded.Feature(transfer.FeatureID(i))
		require.True(t, ok)
		assert.True(t, mustWKT(t, wkt).Equals(f.Geometry), wkt)
		assert.Equal(t, string(rune('A'+i)), f.Attributes[0])
	}
}

func TestShapefile_LineRoundTrip(t *testing.T) {
	layer := NewMemoryLayer("roads", nil)
	layer.Add(mustWKT(t, "LINESTRING (0 0, 5 5, 10 0)"))
	layer.Add(mustWKT(t, "MULTILINESTRING ((0 0, 1 1), (2 2, 3 3))"))

	path := filepath.Join(t.TempDir(), "roads.shp")
	require.NoError(t, WriteShapefile(path, layer))

	loaded, err := ReadShapefile(path, ReadOptions{})
	require.NoError(t, err)
	for _, want := range layer.Features() {
		got, ok := loaded.Feature(want.ID)
		require.True(t, ok)
		assert.True(t, want.Geometry.Equals(got.Geometry))
	}
}

func TestWriteShapefile_Errors(t *testing.T) {
	dir := t.TempDir()

	mixed := NewMemoryLayer("mixed", nil)
	mixed.Add(mustWKT(t, "POINT (0 0)"))
	mixed.Add(mustWKT(t, "LINESTRING (0 0, 1 1)"))
	assert.Error(t, WriteShapefile(filepath.Join(dir, "mixed.shp"), mixed))

	empty := NewMemoryLayer("empty", nil)
	empty.Add(nil)
	assert.Error(t, WriteShapefile(filepath.Join(dir, "empty.shp"), empty))

	collection := NewMemoryLayer("collection", nil)
	collection.Add(mustWKT(t, "GEOMETRYCOLLECTION (POINT (0 0))"))
	assert.Error(t, WriteShapefile(filepath.Join(dir, "collection.shp"), collection))
}

func TestDBFFields(t *testing.T) {
	fields := dbfFields([]transfer.Field{
		{Name: "a_very_long_field_name", Type: transfer.FieldTypeString},
		{Name: "flag", Type: transfer.FieldTypeBoolean},
	})
	require.Len(t, fields, 2)
	assert.Equal(t, "a_very_lon", dbfFieldName(fields[0]))
	assert.Equal(t, byte('L'), fields[1].Fieldtype)
	assert.Equal(t, transfer.FieldTypeBoolean, dbfFieldType(fields[1]))
}

func TestParseDBFValue(t *testing.T) {
	assert.Equal(t, int64(42), parseDBFValue(transfer.FieldTypeInteger, " 42"))
	assert.Nil(t, parseDBFValue(transfer.FieldTypeInteger, "**"))
	assert.Equal(t, 0.25, parseDBFValue(transfer.FieldTypeReal, "0.25000000"))
	assert.Equal(t, "text", parseDBFValue(transfer.FieldTypeString, "text\x00\x00"))
	assert.Nil(t, parseDBFValue(transfer.FieldTypeString, "   "))
	assert.Equal(t, true, parseDBFValue(transfer.FieldTypeBoolean, "y"))
	assert.Nil(t, parseDBFValue(transfer.FieldTypeBoolean, "?"))
	assert.Nil(t, parseDBFValue(transfer.FieldTypeDate, "2024"))
}

func TestPolygonFromRings(t *testing.T) {
	clockwise := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	other := []shp.Point{{X: 20, Y: 0}, {X: 20, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 0}, {X: 20, Y: 0}}

	g, err := toGEOS(polygonFromRings([][]shp.Point{clockwise, hole}))
	require.NoError(t, err)
	assert.Equal(t, "Polygon", g.Type())
	assert.Equal(t, 1, g.NumInteriorRings())

	g, err = toGEOS(polygonFromRings([][]shp.Point{clockwise, hole, other}))
	require.NoError(t, err)
	assert.Equal(t, "MultiPolygon", g.Type())
	assert.Equal(t, 2, g.NumGeometries())
}

func TestDBFFields_TruncatedNamesStayUnique(t *testing.T) {
	fields := dbfFields([]transfer.Field{
		{Name: "zone_name_a", Type: transfer.FieldTypeString},
		{Name: "zone_name_b", Type: transfer.FieldTypeString},
		{Name: "ZONE_NAME_c", Type: transfer.FieldTypeString},
		{Name: "zone_1", Type: transfer.FieldTypeString},
	})

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = dbfFieldName(f)
	}
	assert.Equal(t, []string{"zone_name_", "zone_nam_1", "ZONE_NAM_2", "zone_1"}, names)
}

func TestShapefile_LongFieldNamesRoundTrip(t *testing.T) {
	layer := NewMemoryLayer("zones", []transfer.Field{
		{Name: "zone_name_a", Type: transfer.FieldTypeString},
		{Name: "zone_name_b", Type: transfer.FieldTypeString},
	})
	layer.Add(mustWKT(t, "POINT (1 1)"), "first", "second")

	path := filepath.Join(t.TempDir(), "zones.shp")
	require.NoError(t, WriteShapefile(path, layer))

	loaded, err := ReadShapefile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []transfer.Field{
		{Name: "zone_name_", Type: transfer.FieldTypeString},
		{Name: "zone_nam_1", Type: transfer.FieldTypeString},
	}, loaded.Fields())

	f, ok := loaded.Feature(0)
	require.True(t, ok)
	assert.Equal(t, []any{"first", "second"}, f.Attributes)
}
