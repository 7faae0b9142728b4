package layers

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/bsaid97/go-attribute-transfer/utils"
)

// Format is an on-disk layer encoding.
type Format string

const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
	// FormatZip bundles the GeoJSON and shapefile encodings in one archive.
	FormatZip Format = "zip"
)

// ParseFormat accepts a format name, or an empty string to infer the format
// from path.
func ParseFormat(name, path string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "shapefile", "shp":
		return FormatShapefile, nil
	case "zip":
		return FormatZip, nil
	case "":
		return FormatFromPath(path), nil
	default:
		return "", fmt.Errorf("unknown layer format %q", name)
	}
}

// FormatFromPath infers the format from the file extension, defaulting to
// GeoJSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return FormatShapefile
	case ".zip":
		return FormatZip
	default:
		return FormatGeoJSON
	}
}

// Open loads a GeoJSON or shapefile layer by extension.
func Open(path string, opts ReadOptions) (*MemoryLayer, error) {
	switch FormatFromPath(path) {
	case FormatShapefile:
		return ReadShapefile(path, opts)
	case FormatGeoJSON:
		return ReadGeoJSONFile(path, opts)
	default:
		return nil, fmt.Errorf("cannot read layers from %s", path)
	}
}

// Bundle returns a zip containing layer as <baseName>.json and as a
// shapefile.
func Bundle(layer transfer.Layer, baseName string) ([]byte, error) {
	var jsonData bytes.Buffer
	if err := WriteGeoJSON(&jsonData, layer); err != nil {
		return nil, err
	}
	files := []utils.ArchiveFile{{Name: baseName + ".json", Content: jsonData.Bytes()}}

	components, err := ShapefileComponents(layer, baseName)
	if err != nil {
		return nil, fmt.Errorf("failed to add shapefile to zip: %w", err)
	}
	for _, ext := range ShapefileExtensions {
		if content, ok := components[baseName+ext]; ok {
			files = append(files, utils.ArchiveFile{Name: baseName + ext, Content: content})
		}
	}
	return utils.GenerateZip(files)
}

// Save writes layer to path in format.
func Save(path string, layer transfer.Layer, format Format) error {
	switch format {
	case FormatShapefile:
		return WriteShapefile(path, layer)
	case FormatZip:
		data, err := Bundle(layer, layerName(path))
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to save zip file: %w", err)
		}
		return nil
	default:
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := WriteGeoJSON(file, layer); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}
}
