package handlers

import (
	"github.com/bsaid97/go-attribute-transfer/transfer"
)

type Error struct {
	Ref          transfer.FeatureID `json:"ref"`
	ErrorMessage string             `json:"errorMessage"`
}

// CheckGeometry reports every feature of layer whose geometry is missing or
// invalid. Invalid geometries still take part in a transfer, but GEOS
// predicates on them may be unreliable.
func CheckGeometry(layer transfer.Layer) []Error {
	errors := []Error{}

	for _, feature := range layer.Features() {
		shape := feature.Geometry
		if shape == nil {
			errors = append(errors, Error{Ref: feature.ID, ErrorMessage: "missing geometry"})
			continue
		}
		if !shape.IsValid() {
			errors = append(errors, Error{Ref: feature.ID, ErrorMessage: shape.IsValidReason()})
		}
	}
	return errors
}
