package layers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/jonas-p/go-shp"
)

// shapefileDateLayout is the DBF text form of dates.
const shapefileDateLayout = "20060102"

// ShapefileExtensions are the components written for a layer.
var ShapefileExtensions = []string{".shp", ".shx", ".dbf"}

// ReadShapefile loads an ESRI shapefile. Feature ids are record numbers.
func ReadShapefile(path string, opts ReadOptions) (*MemoryLayer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer reader.Close()

	dbfFields := reader.Fields()
	fields := make([]transfer.Field, len(dbfFields))
	for i, f := range dbfFields {
		fields[i] = transfer.Field{Name: dbfFieldName(f), Type: dbfFieldType(f)}
	}

	layer := NewMemoryLayer(opts.nameFor(path), fields)
	for reader.Next() {
		row, shape := reader.Shape()
		g, err := shapeToGeom(shape)
		if err != nil {
			return nil, fmt.Errorf("shapefile %s: record %d: %w", path, row, err)
		}
		geometry, err := toGEOS(g)
		if err != nil {
			return nil, fmt.Errorf("shapefile %s: record %d: %w", path, row, err)
		}

		attrs := make([]any, len(fields))
		for i, field := range fields {
			attrs[i] = parseDBFValue(field.Type, reader.ReadAttribute(row, i))
		}
		if _, err := layer.AddWithID(transfer.FeatureID(row), geometry, attrs...); err != nil {
			return nil, err
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}

	layer.SetEditable(!opts.ReadOnly)
	return layer, nil
}

func dbfFieldName(f shp.Field) string {
	return strings.TrimRight(string(f.Name[:]), "\x00 ")
}

func dbfFieldType(f shp.Field) transfer.FieldType {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return transfer.FieldTypeInteger
		}
		return transfer.FieldTypeReal
	case 'F':
		return transfer.FieldTypeReal
	case 'D':
		return transfer.FieldTypeDate
	case 'L':
		return transfer.FieldTypeBoolean
	default:
		return transfer.FieldTypeString
	}
}

// parseDBFValue converts a DBF text cell. Blank and unparsable numeric cells
// are NULL.
func parseDBFValue(t transfer.FieldType, raw string) any {
	text := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if text == "" {
		return nil
	}
	switch t {
	case transfer.FieldTypeInteger:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
		return nil
	case transfer.FieldTypeReal:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return nil
	case transfer.FieldTypeDate:
		if d, err := time.Parse(shapefileDateLayout, text); err == nil {
			return d
		}
		return nil
	case transfer.FieldTypeBoolean:
		switch strings.ToUpper(text) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	default:
		return text
	}
}

// WriteShapefile writes layer to path (.shp) with its .shx and .dbf
// siblings. Every geometry must belong to the same shape family as the
// first non-null one.
func WriteShapefile(path string, layer transfer.Layer) error {
	features := layer.Features()
	shapes := make([]shp.Shape, len(features))
	shapeType := shp.NULL
	for i, feature := range features {
		g, err := fromGEOS(feature.Geometry)
		if err != nil {
			return fmt.Errorf("feature %d: %w", feature.ID, err)
		}
		shape, err := geomToShape(g)
		if err != nil {
			return fmt.Errorf("feature %d: %w", feature.ID, err)
		}
		st := shapeTypeOf(shape)
		if st != shp.NULL {
			if shapeType == shp.NULL {
				shapeType = st
			} else if st != shapeType {
				return fmt.Errorf("feature %d: mixed geometry types cannot share a shapefile", feature.ID)
			}
		}
		shapes[i] = shape
	}
	if shapeType == shp.NULL {
		return fmt.Errorf("no features with geometry to write to shapefile")
	}

	writer, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	defer writer.Close()

	fields := layer.Fields()
	if err := writer.SetFields(dbfFields(fields)); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	for i, feature := range features {
		row := int(writer.Write(shapes[i]))
		for j, field := range fields {
			value, _ := feature.Attribute(j)
			if err := writer.WriteAttribute(row, j, dbfValue(value)); err != nil {
				return fmt.Errorf("feature %d: failed to write attribute %q: %w", feature.ID, field.Name, err)
			}
		}
	}
	return nil
}

func shapeTypeOf(shape shp.Shape) shp.ShapeType {
	switch shape.(type) {
	case *shp.Point:
		return shp.POINT
	case *shp.MultiPoint:
		return shp.MULTIPOINT
	case *shp.PolyLine:
		return shp.POLYLINE
	case *shp.Polygon:
		return shp.POLYGON
	default:
		return shp.NULL
	}
}

// dbfFields maps layer fields to DBF columns. Names are cut to the 10
// characters DBF allows; names that collide after cutting get a numeric
// suffix.
func dbfFields(fields []transfer.Field) []shp.Field {
	out := make([]shp.Field, len(fields))
	used := make(map[string]bool, len(fields))
	for i, field := range fields {
		name := dbfColumnName(field.Name, used)
		used[strings.ToUpper(name)] = true

		switch field.Type {
		case transfer.FieldTypeInteger:
			out[i] = shp.NumberField(name, 18)
		case transfer.FieldTypeReal:
			out[i] = shp.FloatField(name, 24, 8)
		case transfer.FieldTypeDate:
			out[i] = shp.DateField(name)
		case transfer.FieldTypeBoolean:
			f := shp.StringField(name, 1)
			f.Fieldtype = 'L'
			out[i] = f
		default:
			out[i] = shp.StringField(name, 254)
		}
	}
	return out
}

// dbfColumnName returns name cut to 10 characters, suffixed with _1, _2...
// until it is not in used. DBF column names are compared case-insensitively.
func dbfColumnName(name string, used map[string]bool) string {
	const maxLen = 10
	base := name
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if !used[strings.ToUpper(base)] {
		return base
	}
	for n := 1; ; n++ {
		suffix := "_" + strconv.Itoa(n)
		candidate := base
		if len(candidate)+len(suffix) > maxLen {
			candidate = candidate[:maxLen-len(suffix)]
		}
		candidate += suffix
		if !used[strings.ToUpper(candidate)] {
			return candidate
		}
	}
}

func dbfValue(value any) any {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case time.Time:
		return v.Format(shapefileDateLayout)
	case bool:
		if v {
			return "T"
		}
		return "F"
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float32:
		return float64(v)
	case string:
		return v
	case int, float64:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ShapefileComponents writes layer into a temporary directory and returns
// the bytes of each component keyed by baseName plus extension.
func ShapefileComponents(layer transfer.Layer, baseName string) (map[string][]byte, error) {
	tempDir, err := os.MkdirTemp("", "shapefile_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	shapefilePath := filepath.Join(tempDir, baseName+".shp")
	if err := WriteShapefile(shapefilePath, layer); err != nil {
		return nil, err
	}

	components := make(map[string][]byte, len(ShapefileExtensions))
	for _, ext := range ShapefileExtensions {
		filePath := strings.TrimSuffix(shapefilePath, ".shp") + ext
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			continue
		}
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read shapefile component %s: %w", ext, err)
		}
		components[baseName+ext] = content
	}
	return components, nil
}
