// Package layers provides in-memory layers and hosts backed by GeoJSON or
// ESRI shapefiles.
package layers

import (
	"fmt"
	"time"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/twpayne/go-geos"
)

// MemoryLayer is a transfer.Layer held entirely in memory.
type MemoryLayer struct {
	name     string
	fields   []transfer.Field
	features []*transfer.Feature
	byID     map[transfer.FeatureID]int
	editable bool
	locked   map[transfer.FeatureID]bool
	selected []transfer.FeatureID
}

// NewMemoryLayer returns an empty, editable layer.
func NewMemoryLayer(name string, fields []transfer.Field) *MemoryLayer {
	return &MemoryLayer{
		name:     name,
		fields:   append([]transfer.Field(nil), fields...),
		byID:     make(map[transfer.FeatureID]int),
		editable: true,
		locked:   make(map[transfer.FeatureID]bool),
	}
}

// Add appends a feature with the next free id. It returns nil when attrs
// has more values than the layer has fields.
func (l *MemoryLayer) Add(geom *geos.Geom, attrs ...any) *transfer.Feature {
	id := transfer.FeatureID(len(l.features))
	for l.has(id) {
		id++
	}
	f, _ := l.AddWithID(id, geom, attrs...)
	return f
}

// AddWithID appends a feature under an explicit id. Missing trailing
// attributes are stored as nil.
func (l *MemoryLayer) AddWithID(id transfer.FeatureID, geom *geos.Geom, attrs ...any) (*transfer.Feature, error) {
	if l.has(id) {
		return nil, fmt.Errorf("layer %q: duplicate feature id %d", l.name, id)
	}
	if len(attrs) > len(l.fields) {
		return nil, fmt.Errorf("layer %q: feature %d has %d attributes, layer has %d fields", l.name, id, len(attrs), len(l.fields))
	}
	values := make([]any, len(l.fields))
	copy(values, attrs)

	f := &transfer.Feature{ID: id, Geometry: geom, Attributes: values}
	l.byID[id] = len(l.features)
	l.features = append(l.features, f)
	return f, nil
}

func (l *MemoryLayer) has(id transfer.FeatureID) bool {
	_, ok := l.byID[id]
	return ok
}

func (l *MemoryLayer) Name() string { return l.name }

func (l *MemoryLayer) Fields() []transfer.Field {
	return append([]transfer.Field(nil), l.fields...)
}

func (l *MemoryLayer) IsEditable() bool { return l.editable }

// SetEditable toggles editing mode.
func (l *MemoryLayer) SetEditable(editable bool) { l.editable = editable }

// Len returns the number of features.
func (l *MemoryLayer) Len() int { return len(l.features) }

// Features returns every feature in insertion order, or only the listed ids
// in the order given. Unknown ids are ignored.
func (l *MemoryLayer) Features(ids ...transfer.FeatureID) []*transfer.Feature {
	if len(ids) == 0 {
		return append([]*transfer.Feature(nil), l.features...)
	}
	out := make([]*transfer.Feature, 0, len(ids))
	for _, id := range ids {
		if i, ok := l.byID[id]; ok {
			out = append(out, l.features[i])
		}
	}
	return out
}

// Feature returns a single feature by id.
func (l *MemoryLayer) Feature(id transfer.FeatureID) (*transfer.Feature, bool) {
	i, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return l.features[i], true
}

// Lock makes writes to the given features fail, as a host does for features
// held by another edit session.
func (l *MemoryLayer) Lock(ids ...transfer.FeatureID) {
	for _, id := range ids {
		l.locked[id] = true
	}
}

// WriteAttribute stores value when the layer is editable, the feature exists
// and is not locked, and value fits the field type.
func (l *MemoryLayer) WriteAttribute(id transfer.FeatureID, fieldIndex int, value any) bool {
	if !l.editable || l.locked[id] {
		return false
	}
	i, ok := l.byID[id]
	if !ok || fieldIndex < 0 || fieldIndex >= len(l.fields) {
		return false
	}
	if !Accepts(l.fields[fieldIndex].Type, value) {
		return false
	}
	l.features[i].Attributes[fieldIndex] = value
	return true
}

func (l *MemoryLayer) Select(ids []transfer.FeatureID) {
	l.selected = append([]transfer.FeatureID(nil), ids...)
}

// Selected returns the ids passed to the last Select call.
func (l *MemoryLayer) Selected() []transfer.FeatureID {
	return append([]transfer.FeatureID(nil), l.selected...)
}

// Accepts reports whether value can be stored in a field of type t. Nil is
// accepted by every type.
func Accepts(t transfer.FieldType, value any) bool {
	if value == nil {
		return true
	}
	switch value.(type) {
	case int, int32, int64:
		return t == transfer.FieldTypeInteger
	case float32, float64:
		return t == transfer.FieldTypeReal
	case string:
		return t == transfer.FieldTypeString
	case time.Time:
		return t == transfer.FieldTypeDate
	case bool:
		return t == transfer.FieldTypeBoolean
	default:
		return false
	}
}

// MemoryHost is a transfer.Host over a fixed list of layers.
type MemoryHost struct {
	layers []transfer.Layer
}

func NewMemoryHost(layers ...transfer.Layer) *MemoryHost {
	return &MemoryHost{layers: layers}
}

// Add registers another layer.
func (h *MemoryHost) Add(layer transfer.Layer) {
	h.layers = append(h.layers, layer)
}

func (h *MemoryHost) Layers() []transfer.Layer {
	return append([]transfer.Layer(nil), h.layers...)
}
