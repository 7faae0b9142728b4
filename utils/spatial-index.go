package utils

import (
	"log/slog"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geos"
)

const (
	indexMinChildren = 25
	indexMaxChildren = 50

	// boxPadding is added around every box, relative to its coordinate
	// magnitude, so point and zero-area boxes have a positive size.
	boxPadding = 1e-9
)

// SpatialIndex is a bulk-loaded R-tree over feature bounding boxes. It is
// read-only once built.
type SpatialIndex struct {
	tree *rtreego.Rtree
	size int
}

// IndexedGeometry is one entry handed to BuildSpatialIndex.
type IndexedGeometry struct {
	ID  int64
	Box *geos.Box2D
}

type indexedBox struct {
	id   int64
	box  geos.Box2D
	rect rtreego.Rect
}

func (b *indexedBox) Bounds() rtreego.Rect {
	return b.rect
}

// BuildSpatialIndex loads all entries at once. Entries without a usable box
// are skipped.
func BuildSpatialIndex(entries []IndexedGeometry) *SpatialIndex {
	objs := make([]rtreego.Spatial, 0, len(entries))
	for _, entry := range entries {
		rect, ok := paddedRect(entry.Box)
		if !ok {
			slog.Warn("skipping geometry without bounds in spatial index", "id", entry.ID)
			continue
		}
		objs = append(objs, &indexedBox{id: entry.ID, box: *entry.Box, rect: rect})
	}

	return &SpatialIndex{
		tree: rtreego.NewTree(2, indexMinChildren, indexMaxChildren, objs...),
		size: len(objs),
	}
}

// Len returns the number of indexed entries.
func (si *SpatialIndex) Len() int {
	if si == nil {
		return 0
	}
	return si.size
}

// Query returns, in ascending order, the ids of every entry whose box
// intersects box. Boxes that only touch are included.
func (si *SpatialIndex) Query(box *geos.Box2D) []int64 {
	if si.Len() == 0 {
		return nil
	}
	rect, ok := paddedRect(box)
	if !ok {
		return nil
	}

	var ids []int64
	for _, spatial := range si.tree.SearchIntersect(rect) {
		candidate := spatial.(*indexedBox)
		if BoxesIntersect(&candidate.box, box) {
			ids = append(ids, candidate.id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// BoundsOf returns the bounding box of g, or false for nil and empty
// geometries.
func BoundsOf(g *geos.Geom) (*geos.Box2D, bool) {
	if g == nil || g.IsEmpty() {
		return nil, false
	}
	bounds := g.Bounds()
	if !usableBox(bounds) {
		return nil, false
	}
	return bounds, true
}

// ExpandBox grows b by distance on every side.
func ExpandBox(b *geos.Box2D, distance float64) *geos.Box2D {
	return &geos.Box2D{
		MinX: b.MinX - distance,
		MinY: b.MinY - distance,
		MaxX: b.MaxX + distance,
		MaxY: b.MaxY + distance,
	}
}

// BoxesIntersect reports whether a and b share at least one point.
func BoxesIntersect(a, b *geos.Box2D) bool {
	return a.MinX <= b.MaxX && b.MinX <= a.MaxX &&
		a.MinY <= b.MaxY && b.MinY <= a.MaxY
}

func usableBox(b *geos.Box2D) bool {
	if b == nil {
		return false
	}
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

func paddedRect(b *geos.Box2D) (rtreego.Rect, bool) {
	if !usableBox(b) {
		return rtreego.Rect{}, false
	}
	padX := boxPadding * math.Max(1, math.Max(math.Abs(b.MinX), math.Abs(b.MaxX)))
	padY := boxPadding * math.Max(1, math.Max(math.Abs(b.MinY), math.Abs(b.MaxY)))

	origin := rtreego.Point{b.MinX - padX, b.MinY - padY}
	lengths := []float64{b.MaxX - b.MinX + 2*padX, b.MaxY - b.MinY + 2*padY}
	rect, err := rtreego.NewRect(origin, lengths)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}
