package transfer

import (
	"fmt"
	"math"
	"strings"

	"github.com/twpayne/go-geos"
)

// MatchRule is the geometric relation used to pair a target feature with a
// source feature.
type MatchRule string

const (
	RuleIntersects  MatchRule = "intersects"
	RuleContains    MatchRule = "contains"
	RuleWithin      MatchRule = "within"
	RuleTouches     MatchRule = "touches"
	RuleEquals      MatchRule = "equals"
	RuleVertexMatch MatchRule = "vertex-match"
)

// DefaultVertexTolerance is the vertex-match distance in layer units.
const DefaultVertexTolerance = 0.001

// predicate decides a match for one (target, source) pair.
type predicate func(target, source *geos.Geom, tolerance float64) bool

var predicates = map[MatchRule]predicate{
	RuleIntersects: func(t, s *geos.Geom, _ float64) bool { return t.Intersects(s) },
	// contains and within are evaluated on the source geometry and must not
	// be swapped.
	RuleContains:    func(t, s *geos.Geom, _ float64) bool { return s.Contains(t) },
	RuleWithin:      func(t, s *geos.Geom, _ float64) bool { return s.Within(t) },
	RuleTouches:     func(t, s *geos.Geom, _ float64) bool { return t.Touches(s) },
	RuleEquals:      func(t, s *geos.Geom, _ float64) bool { return t.Equals(s) },
	RuleVertexMatch: vertexMatch,
}

// Rules returns every supported rule in presentation order.
func Rules() []MatchRule {
	return []MatchRule{RuleIntersects, RuleContains, RuleWithin, RuleTouches, RuleEquals, RuleVertexMatch}
}

// Valid reports whether r is one of the supported rules.
func (r MatchRule) Valid() bool {
	_, ok := predicates[r]
	return ok
}

// ParseMatchRule accepts rule names case-insensitively. "vertex match" and
// "vertex_match" are accepted for vertex-match.
func ParseMatchRule(s string) (MatchRule, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer(" ", "-", "_", "-").Replace(name)
	rule := MatchRule(name)
	if !rule.Valid() {
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown match rule %q", s)}
	}
	return rule, nil
}

// Evaluator applies match rules. The zero value uses DefaultVertexTolerance.
type Evaluator struct {
	VertexTolerance float64
}

func (e Evaluator) tolerance() float64 {
	if e.VertexTolerance > 0 {
		return e.VertexTolerance
	}
	return DefaultVertexTolerance
}

// Evaluate reports whether source matches target under rule. Nil or empty
// geometries and unknown rules never match.
func (e Evaluator) Evaluate(rule MatchRule, target, source *geos.Geom) bool {
	match, ok := predicates[rule]
	if !ok || target == nil || source == nil {
		return false
	}
	if target.IsEmpty() || source.IsEmpty() {
		return false
	}
	return match(target, source, e.tolerance())
}

// vertexMatch only applies to point targets. Any other target type is a
// non-match.
func vertexMatch(target, source *geos.Geom, tolerance float64) bool {
	if target.TypeID() != geos.TypeIDPoint {
		return false
	}
	cs := target.CoordSeq()
	if cs == nil || cs.Size() == 0 {
		return false
	}
	px, py := cs.X(0), cs.Y(0)
	return eachVertex(source, func(x, y float64) bool {
		return math.Hypot(x-px, y-py) < tolerance
	})
}

// eachVertex calls fn for every vertex of g, including interior rings and
// collection members, and stops at the first call that returns true.
func eachVertex(g *geos.Geom, fn func(x, y float64) bool) bool {
	if g == nil || g.IsEmpty() {
		return false
	}
	switch g.TypeID() {
	case geos.TypeIDPoint, geos.TypeIDLineString, geos.TypeIDLinearRing:
		cs := g.CoordSeq()
		if cs == nil {
			return false
		}
		for i := 0; i < cs.Size(); i++ {
			if fn(cs.X(i), cs.Y(i)) {
				return true
			}
		}
		return false
	case geos.TypeIDPolygon:
		if eachVertex(g.ExteriorRing(), fn) {
			return true
		}
		for i := 0; i < g.NumInteriorRings(); i++ {
			if eachVertex(g.InteriorRing(i), fn) {
				return true
			}
		}
		return false
	default:
		for i := 0; i < g.NumGeometries(); i++ {
			if eachVertex(g.Geometry(i), fn) {
				return true
			}
		}
		return false
	}
}
