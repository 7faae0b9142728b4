package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	require.NoError(t, err, wkt)
	return g
}

const (
	unitSquare  = "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"
	rightSquare = "POLYGON ((10 0, 20 0, 20 10, 10 10, 10 0))"
	innerSquare = "POLYGON ((2 2, 4 2, 4 4, 2 4, 2 2))"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		rule   MatchRule
		target string
		source string
		want   bool
	}{
		{"intersects point inside", RuleIntersects, "POINT (5 5)", unitSquare, true},
		{"intersects point outside", RuleIntersects, "POINT (15 15)", unitSquare, false},
		{"intersects shared edge", RuleIntersects, rightSquare, unitSquare, true},

		{"contains source holds target", RuleContains, "POINT (5 5)", unitSquare, true},
		{"contains target larger than source", RuleContains, unitSquare, innerSquare, false},
		{"contains equal geometries", RuleContains, unitSquare, unitSquare, true},

		{"within source inside target", RuleWithin, unitSquare, innerSquare, true},
		{"within source larger than target", RuleWithin, innerSquare, unitSquare, false},

		{"touches adjacent squares", RuleTouches, rightSquare, unitSquare, true},
		{"touches overlapping squares", RuleTouches, innerSquare, unitSquare, false},
		{"touches point on boundary", RuleTouches, "POINT (10 5)", unitSquare, true},

		{"equals different vertex order", RuleEquals, "POLYGON ((10 0, 10 10, 0 10, 0 0, 10 0))", unitSquare, true},
		{"equals different shapes", RuleEquals, innerSquare, unitSquare, false},

		{"vertex match near corner", RuleVertexMatch, "POINT (10.0005 10)", unitSquare, true},
		{"vertex match exactly on corner", RuleVertexMatch, "POINT (0 0)", unitSquare, true},
		{"vertex match inside but far from vertices", RuleVertexMatch, "POINT (5 5)", unitSquare, false},
		{"vertex match at tolerance is excluded", RuleVertexMatch, "POINT (0.001 0)", "POINT (0 0)", false},
		{"vertex match line target", RuleVertexMatch, "LINESTRING (0 0, 10 0)", unitSquare, false},
		{"vertex match polygon target", RuleVertexMatch, unitSquare, unitSquare, false},
		{"vertex match hole vertex", RuleVertexMatch, "POINT (3 3)",
			"POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0), (3 3, 6 3, 6 6, 3 6, 3 3))", true},
		{"vertex match multipolygon member", RuleVertexMatch, "POINT (30 30)",
			"MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((30 30, 31 30, 31 31, 30 30)))", true},
	}

	var eval Evaluator
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eval.Evaluate(tt.rule, mustWKT(t, tt.target), mustWKT(t, tt.source))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_ContainsAndWithinAreNotSwapped(t *testing.T) {
	var eval Evaluator
	small := mustWKT(t, innerSquare)
	big := mustWKT(t, unitSquare)

	assert.True(t, eval.Evaluate(RuleContains, small, big))
	assert.False(t, eval.Evaluate(RuleWithin, small, big))
	assert.True(t, eval.Evaluate(RuleWithin, big, small))
	assert.False(t, eval.Evaluate(RuleContains, big, small))
}

func TestEvaluate_SymmetricRules(t *testing.T) {
	var eval Evaluator
	a := mustWKT(t, unitSquare)
	b := mustWKT(t, rightSquare)

	for _, rule := range []MatchRule{RuleIntersects, RuleTouches, RuleEquals} {
		assert.Equal(t, eval.Evaluate(rule, a, b), eval.Evaluate(rule, b, a), rule)
	}
}

func TestEvaluate_NilAndEmptyGeometries(t *testing.T) {
	var eval Evaluator
	square := mustWKT(t, unitSquare)
	empty := mustWKT(t, "POLYGON EMPTY")

	for _, rule := range Rules() {
		assert.False(t, eval.Evaluate(rule, nil, square), rule)
		assert.False(t, eval.Evaluate(rule, square, nil), rule)
		assert.False(t, eval.Evaluate(rule, empty, square), rule)
	}
	assert.False(t, eval.Evaluate(MatchRule("overlaps"), square, square))
}

func TestEvaluate_CustomTolerance(t *testing.T) {
	target := mustWKT(t, "POINT (0.5 0)")
	source := mustWKT(t, "POINT (0 0)")

	assert.False(t, Evaluator{}.Evaluate(RuleVertexMatch, target, source))
	assert.True(t, Evaluator{VertexTolerance: 1}.Evaluate(RuleVertexMatch, target, source))
}

func TestParseMatchRule(t *testing.T) {
	for input, want := range map[string]MatchRule{
		"intersects":   RuleIntersects,
		" Contains ":   RuleContains,
		"WITHIN":       RuleWithin,
		"touches":      RuleTouches,
		"equals":       RuleEquals,
		"vertex match": RuleVertexMatch,
		"vertex_match": RuleVertexMatch,
		"vertex-match": RuleVertexMatch,
	} {
		got, err := ParseMatchRule(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseMatchRule("overlaps")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEachVertex_StopsAtFirstMatch(t *testing.T) {
	line := mustWKT(t, "LINESTRING (0 0, 1 1, 2 2, 3 3)")
	var visited int
	found := eachVertex(line, func(x, y float64) bool {
		visited++
		return x == 1 && y == 1
	})
	assert.True(t, found)
	assert.Equal(t, 2, visited)
}
