package raster

import (
	"math"

	"github.com/subashpoudel19/wildfire/core/models"
)

// zeroAreaEpsilon is the smallest ring area (square meters) treated as a
// real footprint. Projected basin polygons are meter-scaled, so anything
// below this is a degenerate sliver.
const zeroAreaEpsilon = 1e-6

// RingBounds returns the bounding box of a ring.
func RingBounds(ring models.Ring) models.Bounds {
	if len(ring) == 0 {
		return models.Bounds{}
	}
	b := models.Bounds{MinX: ring[0].X, MinY: ring[0].Y, MaxX: ring[0].X, MaxY: ring[0].Y}
	for _, p := range ring[1:] {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return b
}

// PolygonBounds returns the bounding box of a polygon's exterior ring.
func PolygonBounds(poly models.Polygon) models.Bounds {
	return RingBounds(poly.Exterior)
}

// RingArea returns the absolute area of a ring via the shoelace formula.
func RingArea(ring models.Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return math.Abs(sum) / 2
}

// pointInRing implements even-odd ray casting. Points exactly on an edge
// may land on either side; cell centers are treated the same way rasterio's
// center-sampling does, so the ambiguity only affects boundary cells.
func pointInRing(p models.Point, ring models.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := ring[i], ring[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			x := pi.X + (p.Y-pi.Y)/(pj.Y-pi.Y)*(pj.X-pi.X)
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// PolygonContains reports whether the point lies inside the polygon's
// exterior ring and outside all of its holes.
func PolygonContains(poly models.Polygon, p models.Point) bool {
	if !pointInRing(p, poly.Exterior) {
		return false
	}
	for _, hole := range poly.Holes {
		if pointInRing(p, hole) {
			return false
		}
	}
	return true
}

// ValidatePolygon rejects polygons the rasterizer cannot safely fill:
// degenerate rings, zero-area footprints and self-intersecting exteriors.
func ValidatePolygon(poly models.Polygon) error {
	if len(poly.Exterior) < 3 {
		return models.NewGeometryError("exterior ring has %d vertices, need at least 3", len(poly.Exterior))
	}
	if RingArea(poly.Exterior) < zeroAreaEpsilon {
		return models.NewGeometryError("polygon has zero area")
	}
	if ringSelfIntersects(poly.Exterior) {
		return models.NewGeometryError("polygon is self-intersecting")
	}
	for i, hole := range poly.Holes {
		if len(hole) < 3 {
			return models.NewGeometryError("hole %d has %d vertices, need at least 3", i, len(hole))
		}
	}
	return nil
}

// ringSelfIntersects checks every pair of non-adjacent edges for a proper
// crossing. Quadratic, but basin outlines are small enough that this has
// never shown up in profiles.
func ringSelfIntersects(ring models.Ring) bool {
	n := len(ring)
	if n < 4 {
		return false
	}
	edge := func(i int) (models.Point, models.Point) {
		return ring[i], ring[(i+1)%n]
	}
	for i := 0; i < n; i++ {
		a1, a2 := edge(i)
		for j := i + 2; j < n; j++ {
			// Skip adjacent edges, including the wrap-around pair.
			if i == 0 && j == n-1 {
				continue
			}
			b1, b2 := edge(j)
			if segmentsCross(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper intersection between two segments,
// excluding shared endpoints.
func segmentsCross(p1, p2, p3, p4 models.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(a, b, c models.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
