package raster

import (
	"math"

	"github.com/subashpoudel19/wildfire/core/models"
)

// GridGeometry is the shared raster frame for one fire: every scenario's
// grid uses the same origin and dimensions so outputs stack pixel-aligned.
type GridGeometry struct {
	Bounds     models.Bounds
	Resolution float64
	Width      int
	Height     int
}

// ComputeGridGeometry derives the grid frame from the union bounding box of
// the basins, snapped outward to whole multiples of the resolution so every
// basin is fully covered.
func ComputeGridGeometry(bounds models.Bounds, resolution float64) GridGeometry {
	minX := math.Floor(bounds.MinX/resolution) * resolution
	minY := math.Floor(bounds.MinY/resolution) * resolution
	maxX := math.Ceil(bounds.MaxX/resolution) * resolution
	maxY := math.Ceil(bounds.MaxY/resolution) * resolution

	width := int(math.Round((maxX - minX) / resolution))
	height := int(math.Round((maxY - minY) / resolution))
	if width < 1 {
		width = 1
		maxX = minX + resolution
	}
	if height < 1 {
		height = 1
		maxY = minY + resolution
	}

	return GridGeometry{
		Bounds:     models.Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY},
		Resolution: resolution,
		Width:      width,
		Height:     height,
	}
}

// CellCenter returns the projected coordinate of a cell's center. Row 0 is
// the northernmost row.
func (g GridGeometry) CellCenter(row, col int) models.Point {
	return models.Point{
		X: g.Bounds.MinX + (float64(col)+0.5)*g.Resolution,
		Y: g.Bounds.MaxY - (float64(row)+0.5)*g.Resolution,
	}
}

// CellRange returns the half-open row and column span of cells whose
// centers can fall inside the given box, clamped to the grid.
func (g GridGeometry) CellRange(b models.Bounds) (rowStart, rowEnd, colStart, colEnd int) {
	colStart = int(math.Floor((b.MinX - g.Bounds.MinX) / g.Resolution))
	colEnd = int(math.Ceil((b.MaxX-g.Bounds.MinX)/g.Resolution)) + 1
	rowStart = int(math.Floor((g.Bounds.MaxY - b.MaxY) / g.Resolution))
	rowEnd = int(math.Ceil((g.Bounds.MaxY-b.MinY)/g.Resolution)) + 1

	if colStart < 0 {
		colStart = 0
	}
	if rowStart < 0 {
		rowStart = 0
	}
	if colEnd > g.Width {
		colEnd = g.Width
	}
	if rowEnd > g.Height {
		rowEnd = g.Height
	}
	return rowStart, rowEnd, colStart, colEnd
}
