package transfer

import (
	"github.com/bsaid97/go-attribute-transfer/utils"
)

// ResolutionKind tags the variant held by a Resolution.
type ResolutionKind int

const (
	NoMatch ResolutionKind = iota
	UniqueMatch
	AmbiguousMatch
)

func (k ResolutionKind) String() string {
	switch k {
	case UniqueMatch:
		return "unique"
	case AmbiguousMatch:
		return "ambiguous"
	default:
		return "none"
	}
}

func (k ResolutionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Resolution is the match outcome for one target feature. SourceID and Value
// are set for UniqueMatch, Count for AmbiguousMatch.
type Resolution struct {
	Kind     ResolutionKind
	SourceID FeatureID
	Value    any
	Count    int
}

// BuildIndex indexes the bounding boxes of features.
func BuildIndex(features []*Feature) *utils.SpatialIndex {
	entries := make([]utils.IndexedGeometry, 0, len(features))
	for _, feature := range features {
		box, ok := utils.BoundsOf(feature.Geometry)
		if !ok {
			continue
		}
		entries = append(entries, utils.IndexedGeometry{ID: int64(feature.ID), Box: box})
	}
	return utils.BuildSpatialIndex(entries)
}

// Resolve finds the source features matching target under rule and reduces
// them to a Resolution. sourceField is the index of the field whose value a
// unique match carries. Two or more survivors are never broken by picking
// one; no value is read for them.
func Resolve(target *Feature, rule MatchRule, index *utils.SpatialIndex, source Layer, sourceField int, eval Evaluator) Resolution {
	box, ok := utils.BoundsOf(target.Geometry)
	if !ok {
		return Resolution{Kind: NoMatch}
	}
	if rule == RuleVertexMatch {
		box = utils.ExpandBox(box, eval.tolerance())
	}

	candidates := index.Query(box)
	if len(candidates) == 0 {
		return Resolution{Kind: NoMatch}
	}
	ids := make([]FeatureID, len(candidates))
	for i, id := range candidates {
		ids[i] = FeatureID(id)
	}

	var matches []*Feature
	for _, candidate := range source.Features(ids...) {
		if eval.Evaluate(rule, target.Geometry, candidate.Geometry) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{Kind: NoMatch}
	case 1:
		value, _ := matches[0].Attribute(sourceField)
		return Resolution{Kind: UniqueMatch, SourceID: matches[0].ID, Value: value}
	default:
		return Resolution{Kind: AmbiguousMatch, Count: len(matches)}
	}
}
