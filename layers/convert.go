package layers

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// File formats are decoded into go-geom values and handed to GEOS as WKB;
// writers take the reverse path.

func toGEOS(g geom.T) (*geos.Geom, error) {
	if g == nil {
		return nil, nil
	}
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry as WKB: %w", err)
	}
	out, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load geometry into GEOS: %w", err)
	}
	return out, nil
}

func fromGEOS(g *geos.Geom) (geom.T, error) {
	if g == nil {
		return nil, nil
	}
	out, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("failed to decode GEOS geometry: %w", err)
	}
	return out, nil
}

// shapeToGeom converts a shapefile record. Null shapes yield a nil geometry.
func shapeToGeom(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.MultiPoint:
		return geom.NewMultiPointFlat(geom.XY, flatten(s.Points)), nil
	case *shp.PolyLine:
		return lineFromParts(splitParts(s.Parts, s.Points)), nil
	case *shp.PolyLineZ:
		return lineFromParts(splitParts(s.Parts, s.Points)), nil
	case *shp.Polygon:
		return polygonFromRings(splitParts(s.Parts, s.Points)), nil
	case *shp.PolygonZ:
		return polygonFromRings(splitParts(s.Parts, s.Points)), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", shape)
	}
}

func splitParts(parts []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

func flatten(points []shp.Point) []float64 {
	flat := make([]float64, 0, 2*len(points))
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

func lineFromParts(parts [][]shp.Point) geom.T {
	if len(parts) == 1 {
		return geom.NewLineStringFlat(geom.XY, flatten(parts[0]))
	}
	var flat []float64
	ends := make([]int, 0, len(parts))
	for _, part := range parts {
		flat = append(flat, flatten(part)...)
		ends = append(ends, len(flat))
	}
	return geom.NewMultiLineStringFlat(geom.XY, flat, ends)
}

// polygonFromRings groups shapefile rings into polygons. A clockwise ring
// starts a new polygon; a counter-clockwise ring is a hole of the polygon
// before it.
func polygonFromRings(rings [][]shp.Point) geom.T {
	var flat []float64
	var endss [][]int
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		if signedArea(flatten(ring), 2) <= 0 || len(endss) == 0 {
			endss = append(endss, nil)
		}
		flat = append(flat, flatten(ring)...)
		last := len(endss) - 1
		endss[last] = append(endss[last], len(flat))
	}
	if len(endss) == 1 {
		return geom.NewPolygonFlat(geom.XY, flat, endss[0])
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, endss)
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64, stride int) float64 {
	n := len(flat) / stride
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[i*stride]*flat[j*stride+1] - flat[j*stride]*flat[i*stride+1]
	}
	return sum / 2
}

// geomToShape converts a geometry into a shapefile record of the matching
// family. Z and M values are dropped.
func geomToShape(g geom.T) (shp.Shape, error) {
	if g == nil {
		return &shp.Null{}, nil
	}
	if _, ok := g.(*geom.GeometryCollection); ok {
		return nil, fmt.Errorf("unsupported geometry type %T for shapefile", g)
	}
	stride := g.Stride()
	flat := g.FlatCoords()

	switch t := g.(type) {
	case *geom.Point:
		if len(flat) < 2 {
			return &shp.Null{}, nil
		}
		return &shp.Point{X: flat[0], Y: flat[1]}, nil
	case *geom.MultiPoint:
		points := toPoints(flat, stride)
		return &shp.MultiPoint{Box: boxOf(points), NumPoints: int32(len(points)), Points: points}, nil
	case *geom.LineString:
		return shp.NewPolyLine([][]shp.Point{toPoints(flat, stride)}), nil
	case *geom.MultiLineString:
		return shp.NewPolyLine(ringsFromEnds(flat, stride, t.Ends())), nil
	case *geom.Polygon:
		polygon := shp.Polygon(*shp.NewPolyLine(orientRings(ringsFromEnds(flat, stride, t.Ends()))))
		return &polygon, nil
	case *geom.MultiPolygon:
		var parts [][]shp.Point
		offset := 0
		for _, ends := range t.Endss() {
			rings := ringsFromEndsAt(flat, stride, offset, ends)
			parts = append(parts, orientRings(rings)...)
			if len(ends) > 0 {
				offset = ends[len(ends)-1]
			}
		}
		polygon := shp.Polygon(*shp.NewPolyLine(parts))
		return &polygon, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %T for shapefile", g)
	}
}

func toPoints(flat []float64, stride int) []shp.Point {
	points := make([]shp.Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		points = append(points, shp.Point{X: flat[i], Y: flat[i+1]})
	}
	return points
}

func ringsFromEnds(flat []float64, stride int, ends []int) [][]shp.Point {
	return ringsFromEndsAt(flat, stride, 0, ends)
}

func ringsFromEndsAt(flat []float64, stride, offset int, ends []int) [][]shp.Point {
	rings := make([][]shp.Point, 0, len(ends))
	start := offset
	for _, end := range ends {
		rings = append(rings, toPoints(flat[start:end], stride))
		start = end
	}
	return rings
}

// orientRings makes the first ring clockwise and the rest counter-clockwise,
// as the shapefile format requires.
func orientRings(rings [][]shp.Point) [][]shp.Point {
	for i, ring := range rings {
		area := signedArea(flatten(ring), 2)
		if (i == 0 && area > 0) || (i > 0 && area < 0) {
			reversePoints(ring)
		}
	}
	return rings
}

func reversePoints(points []shp.Point) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}

func boxOf(points []shp.Point) shp.Box {
	if len(points) == 0 {
		return shp.Box{}
	}
	box := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		box.MinX = min(box.MinX, p.X)
		box.MinY = min(box.MinY, p.Y)
		box.MaxX = max(box.MaxX, p.X)
		box.MaxY = max(box.MaxY, p.Y)
	}
	return box
}
