package models

// Point is a coordinate in a projected coordinate system (meters).
type Point struct {
	X float64
	Y float64
}

// Ring is a closed polygon ring. The first and last vertex need not be
// repeated; rings are treated as implicitly closed.
type Ring []Point

// Polygon is an exterior ring with zero or more interior rings (holes).
type Polygon struct {
	Exterior Ring
	Holes    []Ring
}

// BasinFeature is one drainage basin produced by the assessment model:
// a polygon with one debris-flow probability per rainfall scenario.
type BasinFeature struct {
	ID            int
	Geometry      Polygon
	Probabilities map[string]float64 // scenario id (e.g. "16mmh") -> probability in [0,1]
}

// Bounds is an axis-aligned bounding box in projected coordinates.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Empty reports whether the box encloses no area.
func (b Bounds) Empty() bool {
	return b.MaxX <= b.MinX || b.MaxY <= b.MinY
}

// Union returns the smallest box containing both boxes.
func (b Bounds) Union(o Bounds) Bounds {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	if o.MinX < b.MinX {
		b.MinX = o.MinX
	}
	if o.MinY < b.MinY {
		b.MinY = o.MinY
	}
	if o.MaxX > b.MaxX {
		b.MaxX = o.MaxX
	}
	if o.MaxY > b.MaxY {
		b.MaxY = o.MaxY
	}
	return b
}

// Contains reports whether the point lies inside or on the box.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}
