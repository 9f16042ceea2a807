package models

// NoDataValue is the sentinel written for cells outside every basin.
// The value follows the ESRI ASCII grid convention.
const NoDataValue = -9999.0

// RasterOutput is one rendered probability grid for a single rainfall
// scenario. Grid rows run north to south; Grid[row][col] holds either a
// probability or NoDataValue. Written once, never mutated afterward.
//
// A raster produced from zero valid basins has Empty set and no Grid
// rows, since there is no extent to georeference. Consumers must check
// Empty before indexing Grid or using Bounds.
type RasterOutput struct {
	ScenarioID       string
	ResolutionMeters float64
	Bounds           Bounds
	Width            int
	Height           int
	Grid             [][]float64
	Empty            bool // true when rasterized from zero valid basins
}

// CellCenter returns the projected coordinate of a cell's center.
func (r *RasterOutput) CellCenter(row, col int) Point {
	return Point{
		X: r.Bounds.MinX + (float64(col)+0.5)*r.ResolutionMeters,
		Y: r.Bounds.MaxY - (float64(row)+0.5)*r.ResolutionMeters,
	}
}
