// Package transfer matches target features to source features by a spatial
// rule and copies one attribute value across when the match is unique.
//
// Layers are owned by a host application. The engine never creates or
// destroys one; it reads features through the Layer interface and asks the
// target layer to change attribute values.
package transfer

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-geos"
)

// FeatureID identifies a feature inside its layer. It is stable for the
// lifetime of a session.
type FeatureID int64

// FieldType is the declared type tag of a layer field.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeInteger
	FieldTypeReal
	FieldTypeString
	FieldTypeDate
	FieldTypeBoolean
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeUnknown: "unknown",
	FieldTypeInteger: "integer",
	FieldTypeReal:    "real",
	FieldTypeString:  "string",
	FieldTypeDate:    "date",
	FieldTypeBoolean: "boolean",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseFieldType accepts the names returned by FieldType.String.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == s && t != FieldTypeUnknown {
			return t, nil
		}
	}
	return FieldTypeUnknown, fmt.Errorf("unknown field type %q", s)
}

// Field describes one attribute column of a layer.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Feature is a single geometric record. Attributes are aligned with the
// Fields of the owning layer: Attributes[i] holds the value of Fields()[i].
type Feature struct {
	ID         FeatureID
	Geometry   *geos.Geom
	Attributes []any
}

// Attribute returns the value stored at field index i.
func (f *Feature) Attribute(i int) (any, bool) {
	if f == nil || i < 0 || i >= len(f.Attributes) {
		return nil, false
	}
	return f.Attributes[i], true
}

// Layer is the capability set a host exposes for one vector layer.
type Layer interface {
	Name() string
	Fields() []Field
	IsEditable() bool
	// Features returns every feature in native order when ids is empty,
	// otherwise only the features whose id is listed.
	Features(ids ...FeatureID) []*Feature
	// WriteAttribute reports false when the host rejects the change.
	WriteAttribute(id FeatureID, fieldIndex int, value any) bool
	// Select tells the host which features were updated. Advisory only.
	Select(ids []FeatureID)
}

// Host lists the vector layers available to a transfer.
type Host interface {
	Layers() []Layer
}

// FindLayer looks a layer up by name.
func FindLayer(host Host, name string) (Layer, error) {
	if host == nil {
		return nil, &ConfigurationError{Reason: "no host available"}
	}
	for _, layer := range host.Layers() {
		if layer.Name() == name {
			return layer, nil
		}
	}
	return nil, &ConfigurationError{Reason: fmt.Sprintf("layer %q not found", name)}
}

// FieldIndex returns the position and description of the named field.
func FieldIndex(layer Layer, name string) (int, Field, bool) {
	for i, field := range layer.Fields() {
		if field.Name == name {
			return i, field, true
		}
	}
	return -1, Field{}, false
}
