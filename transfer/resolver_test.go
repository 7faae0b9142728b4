package transfer_test

import (
	"testing"

	"github.com/bsaid97/go-attribute-transfer/layers"
	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

func wkt(t *testing.T, s string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(s)
	require.NoError(t, err, s)
	return g
}

// recordingLayer remembers which ids each Features call asked for.
type recordingLayer struct {
	*layers.MemoryLayer
	requests [][]transfer.FeatureID
}

func (r *recordingLayer) Features(ids ...transfer.FeatureID) []*transfer.Feature {
	r.requests = append(r.requests, ids)
	return r.MemoryLayer.Features(ids...)
}

func zoneLayer(t *testing.T, polygons map[string]string) *layers.MemoryLayer {
	t.Helper()
	layer := layers.NewMemoryLayer("zones", []transfer.Field{{Name: "zone", Type: transfer.FieldTypeString}})
	for _, value := range []string{"A", "B", "C"} {
		if polygon, ok := polygons[value]; ok {
			layer.Add(wkt(t, polygon), value)
		}
	}
	return layer
}

func TestResolve(t *testing.T) {
	source := zoneLayer(t, map[string]string{
		"A": "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))",
		"B": "POLYGON ((5 5, 15 5, 15 15, 5 15, 5 5))",
		"C": "POLYGON ((40 40, 50 40, 50 50, 40 50, 40 40))",
	})
	index := transfer.BuildIndex(source.Features())

	tests := []struct {
		name  string
		point string
		want  transfer.Resolution
	}{
		{"unique", "POINT (2 2)", transfer.Resolution{Kind: transfer.UniqueMatch, SourceID: 0, Value: "A"}},
		{"unique far polygon", "POINT (45 45)", transfer.Resolution{Kind: transfer.UniqueMatch, SourceID: 2, Value: "C"}},
		{"ambiguous", "POINT (7 7)", transfer.Resolution{Kind: transfer.AmbiguousMatch, Count: 2}},
		{"none", "POINT (30 30)", transfer.Resolution{Kind: transfer.NoMatch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &transfer.Feature{ID: 99, Geometry: wkt(t, tt.point)}
			got := transfer.Resolve(target, transfer.RuleIntersects, index, source, 0, transfer.Evaluator{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_FetchesOnlyCandidates(t *testing.T) {
	source := &recordingLayer{MemoryLayer: zoneLayer(t, map[string]string{
		"A": "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))",
		"C": "POLYGON ((40 40, 50 40, 50 50, 40 50, 40 40))",
	})}
	index := transfer.BuildIndex(source.MemoryLayer.Features())

	target := &transfer.Feature{ID: 1, Geometry: wkt(t, "POINT (45 45)")}
	got := transfer.Resolve(target, transfer.RuleIntersects, index, source, 0, transfer.Evaluator{})
	assert.Equal(t, transfer.UniqueMatch, got.Kind)
	require.Len(t, source.requests, 1)
	assert.Equal(t, []transfer.FeatureID{1}, source.requests[0])

	// No candidate means no scan at all, never a full one.
	target = &transfer.Feature{ID: 2, Geometry: wkt(t, "POINT (100 100)")}
	got = transfer.Resolve(target, transfer.RuleIntersects, index, source, 0, transfer.Evaluator{})
	assert.Equal(t, transfer.NoMatch, got.Kind)
	assert.Len(t, source.requests, 1)
}

func TestResolve_AmbiguousDoesNotReadValue(t *testing.T) {
	source := zoneLayer(t, map[string]string{
		"A": "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))",
		"B": "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))",
	})
	index := transfer.BuildIndex(source.Features())

	target := &transfer.Feature{ID: 1, Geometry: wkt(t, "POINT (1 1)")}
	got := transfer.Resolve(target, transfer.RuleIntersects, index, source, 0, transfer.Evaluator{})
	assert.Equal(t, transfer.AmbiguousMatch, got.Kind)
	assert.Equal(t, 2, got.Count)
	assert.Nil(t, got.Value)
}

func TestResolve_VertexMatchJustOutsideSourceBounds(t *testing.T) {
	source := zoneLayer(t, map[string]string{"A": "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"})
	index := transfer.BuildIndex(source.Features())

	target := &transfer.Feature{ID: 1, Geometry: wkt(t, "POINT (-0.0005 0)")}
	got := transfer.Resolve(target, transfer.RuleVertexMatch, index, source, 0, transfer.Evaluator{})
	assert.Equal(t, transfer.UniqueMatch, got.Kind)
	assert.Equal(t, "A", got.Value)
}

func TestResolve_TargetWithoutGeometry(t *testing.T) {
	source := zoneLayer(t, map[string]string{"A": "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"})
	index := transfer.BuildIndex(source.Features())

	got := transfer.Resolve(&transfer.Feature{ID: 1}, transfer.RuleIntersects, index, source, 0, transfer.Evaluator{})
	assert.Equal(t, transfer.NoMatch, got.Kind)
}

func TestResolve_EmptySourceLayer(t *testing.T) {
	source := zoneLayer(t, nil)
	index := transfer.BuildIndex(source.Features())
	assert.Equal(t, 0, index.Len())

	target := &transfer.Feature{ID: 1, Geometry: wkt(t, "POINT (1 1)")}
	for _, rule := range transfer.Rules() {
		got := transfer.Resolve(target, rule, index, source, 0, transfer.Evaluator{})
		assert.Equal(t, transfer.NoMatch, got.Kind, rule)
	}
}
