package layers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/bsaid97/go-attribute-transfer/utils"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geos"
)

// DateLayout is the text form of date attributes in GeoJSON.
const DateLayout = "2006-01-02"

// Feature struct: geometry and properties are kept raw until parsed.
type Feature struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// FeatureCollection struct: Holds multiple features
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// ReadOptions controls how a layer file is loaded.
type ReadOptions struct {
	// Workers parses geometries in parallel; <= 0 uses every CPU.
	Workers int
	// ReadOnly loads the layer with editing disabled.
	ReadOnly bool
	// Name overrides the layer name derived from the file name.
	Name string
	// FieldTypes replaces the inferred type of the named GeoJSON properties.
	// Shapefiles take their types from the DBF header and ignore it.
	FieldTypes map[string]transfer.FieldType
}

func (o ReadOptions) nameFor(path string) string {
	if o.Name != "" {
		return o.Name
	}
	return layerName(path)
}

type parsedFeature struct {
	geom   *geos.Geom
	keys   []string
	values map[string]any
	err    error
}

// ReadGeoJSONFile loads a FeatureCollection. The layer is named after the
// file without its extension.
func ReadGeoJSONFile(path string, opts ReadOptions) (*MemoryLayer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseGeoJSON(opts.nameFor(path), data, opts)
}

// ReadGeoJSON loads a FeatureCollection from r.
func ReadGeoJSON(name string, r io.Reader, opts ReadOptions) (*MemoryLayer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer %q: %w", name, err)
	}
	return ParseGeoJSON(name, data, opts)
}

// ParseGeoJSON builds a layer from a FeatureCollection document. Field types
// are inferred from the property values; see inferFieldType.
func ParseGeoJSON(name string, data []byte, opts ReadOptions) (*MemoryLayer, error) {
	var collection FeatureCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("layer %q: invalid GeoJSON: %w", name, err)
	}
	if collection.Type != "FeatureCollection" {
		return nil, fmt.Errorf("layer %q: expected a FeatureCollection, got %q", name, collection.Type)
	}

	processor := utils.NewParallelProcessor(opts.Workers)
	parsed := utils.ProcessBatch(processor, collection.Features, parseFeature, "parsing "+name)

	var order []string
	seen := make(map[string]bool)
	for i, p := range parsed {
		if p.err != nil {
			return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, p.err)
		}
		for _, key := range p.keys {
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}

	fields := make([]transfer.Field, len(order))
	for i, key := range order {
		values := make([]any, 0, len(parsed))
		for _, p := range parsed {
			values = append(values, p.values[key])
		}
		fieldType, ok := opts.FieldTypes[key]
		if !ok {
			fieldType = inferFieldType(values)
		}
		fields[i] = transfer.Field{Name: key, Type: fieldType}
	}

	layer := NewMemoryLayer(name, fields)
	ids := featureIDs(collection.Features)
	for i, p := range parsed {
		attrs := make([]any, len(fields))
		for j, field := range fields {
			value, err := convertValue(field.Type, p.values[field.Name])
			if err != nil {
				return nil, fmt.Errorf("layer %q: feature %d: field %q: %w", name, i, field.Name, err)
			}
			attrs[j] = value
		}
		if _, err := layer.AddWithID(ids[i], p.geom, attrs...); err != nil {
			return nil, err
		}
	}
	layer.SetEditable(!opts.ReadOnly)
	return layer, nil
}

func parseFeature(f Feature) parsedFeature {
	g, err := parseGeometry(f.Geometry)
	if err != nil {
		return parsedFeature{err: err}
	}
	keys, values, err := orderedProperties(f.Properties)
	if err != nil {
		return parsedFeature{err: err}
	}
	return parsedFeature{geom: g, keys: keys, values: values}
}

func parseGeometry(raw json.RawMessage) (*geos.Geom, error) {
	if isNull(raw) {
		return nil, nil
	}
	var geometry geojson.Geometry
	if err := json.Unmarshal(raw, &geometry); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	t, err := geometry.Decode()
	if err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	return toGEOS(t)
}

// orderedProperties decodes a properties object keeping key order. Numbers
// are kept as json.Number.
func orderedProperties(raw json.RawMessage) ([]string, map[string]any, error) {
	values := make(map[string]any)
	if isNull(raw) {
		return nil, values, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid properties: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("properties must be an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid properties: %w", err)
		}
		key := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("invalid property %q: %w", key, err)
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = value
	}
	return keys, values, nil
}

// inferFieldType picks the narrowest type that holds every non-null value:
// boolean, integer, real (integers and decimals), date (strings in
// DateLayout), and string for anything else.
func inferFieldType(values []any) transfer.FieldType {
	var bools, ints, floats, dates, others int
	for _, v := range values {
		switch x := v.(type) {
		case nil:
		case bool:
			bools++
		case json.Number:
			if _, err := x.Int64(); err == nil {
				ints++
			} else {
				floats++
			}
		case string:
			if _, err := time.Parse(DateLayout, x); err == nil {
				dates++
			} else {
				others++
			}
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return transfer.FieldTypeString
	case bools > 0 && ints+floats+dates == 0:
		return transfer.FieldTypeBoolean
	case dates > 0 && bools+ints+floats == 0:
		return transfer.FieldTypeDate
	case floats > 0 && bools+dates == 0:
		return transfer.FieldTypeReal
	case ints > 0 && bools+dates == 0:
		return transfer.FieldTypeInteger
	default:
		return transfer.FieldTypeString
	}
}

// convertValue turns a decoded property into the Go value stored for a field
// of type t.
func convertValue(t transfer.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case transfer.FieldTypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, err
		}
		return i, nil
	case transfer.FieldTypeReal:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case transfer.FieldTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%v is not a boolean", v)
		}
		return b, nil
	case transfer.FieldTypeDate:
		text, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v is not a date", v)
		}
		date, err := time.Parse(DateLayout, text)
		if err != nil {
			return nil, err
		}
		return date, nil
	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		default:
			text, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			return string(text), nil
		}
	}
}

// featureIDs uses the features' integer ids when every feature has a unique
// one, and their positions otherwise.
func featureIDs(features []Feature) []transfer.FeatureID {
	ids := make([]transfer.FeatureID, len(features))
	seen := make(map[transfer.FeatureID]bool, len(features))
	native := true
	for i, f := range features {
		var n json.Number
		if isNull(f.ID) || json.Unmarshal(f.ID, &n) != nil {
			native = false
			break
		}
		id, err := n.Int64()
		if err != nil || seen[transfer.FeatureID(id)] {
			native = false
			break
		}
		seen[transfer.FeatureID(id)] = true
		ids[i] = transfer.FeatureID(id)
	}
	if !native {
		for i := range ids {
			ids[i] = transfer.FeatureID(i)
		}
	}
	return ids
}

type outputFeature struct {
	Type       string             `json:"type"`
	ID         transfer.FeatureID `json:"id"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties map[string]any     `json:"properties"`
}

type outputCollection struct {
	Type     string          `json:"type"`
	Features []outputFeature `json:"features"`
}

// WriteGeoJSON writes every feature of layer as a FeatureCollection.
func WriteGeoJSON(w io.Writer, layer transfer.Layer) error {
	fields := layer.Fields()
	collection := outputCollection{Type: "FeatureCollection", Features: []outputFeature{}}

	for _, feature := range layer.Features() {
		t, err := fromGEOS(feature.Geometry)
		if err != nil {
			return fmt.Errorf("feature %d: %w", feature.ID, err)
		}
		var geometry *geojson.Geometry
		if t != nil {
			geometry, err = geojson.Encode(t)
			if err != nil {
				return fmt.Errorf("feature %d: failed to encode geometry: %w", feature.ID, err)
			}
		}

		properties := make(map[string]any, len(fields))
		for i, field := range fields {
			value, _ := feature.Attribute(i)
			if date, ok := value.(time.Time); ok {
				value = date.Format(DateLayout)
			}
			properties[field.Name] = value
		}

		collection.Features = append(collection.Features, outputFeature{
			Type:       "Feature",
			ID:         feature.ID,
			Geometry:   geometry,
			Properties: properties,
		})
	}

	if err := json.NewEncoder(w).Encode(collection); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func layerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
