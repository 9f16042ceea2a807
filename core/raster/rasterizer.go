package raster

import (
	"fmt"
	"math"

	"github.com/subashpoudel19/wildfire/core/models"
)

// InvalidBasin records a basin excluded from rasterization and why. The
// exclusion is reported, never silent: callers surface these on the job.
type InvalidBasin struct {
	BasinID int
	Err     *models.PipelineError
}

// Result holds one grid per scenario plus the basins that were excluded.
type Result struct {
	Rasters map[string]*models.RasterOutput
	Invalid []InvalidBasin
}

// Rasterize converts basin polygons with per-scenario probability
// attributes into one grid per scenario. All scenarios share a single grid
// geometry computed from the union bounding box of the valid basins,
// snapped outward to whole multiples of the resolution.
//
// A cell takes the probability of the basin containing its center. Basins
// are expected not to overlap; where they do, the first basin in input
// order wins. Invalid polygons are excluded and reported in the result.
// Zero valid basins yields an all-nodata raster per scenario, flagged
// Empty, rather than an error.
//
// Rasterize is a pure function of its inputs: identical basins, scenarios
// and resolution produce bit-identical grids.
func Rasterize(basins []models.BasinFeature, scenarioIDs []string, resolution float64) (*Result, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %g", resolution)
	}

	result := &Result{Rasters: make(map[string]*models.RasterOutput, len(scenarioIDs))}

	var valid []models.BasinFeature
	for _, basin := range basins {
		if err := ValidatePolygon(basin.Geometry); err != nil {
			result.Invalid = append(result.Invalid, InvalidBasin{
				BasinID: basin.ID,
				Err:     models.AsPipelineError("rasterize", err),
			})
			continue
		}
		valid = append(valid, basin)
	}

	if len(valid) == 0 {
		for _, scenario := range scenarioIDs {
			result.Rasters[scenario] = &models.RasterOutput{
				ScenarioID:       scenario,
				ResolutionMeters: resolution,
				Empty:            true,
				Grid:             [][]float64{},
			}
		}
		return result, nil
	}

	bounds := PolygonBounds(valid[0].Geometry)
	for _, basin := range valid[1:] {
		bounds = bounds.Union(PolygonBounds(basin.Geometry))
	}
	geom := ComputeGridGeometry(bounds, resolution)

	// Resolve cell ownership once and reuse it for every scenario, so the
	// grids stay pixel-aligned and the overlap rule is applied exactly once.
	owner := assignOwners(geom, valid)

	for _, scenario := range scenarioIDs {
		out := &models.RasterOutput{
			ScenarioID:       scenario,
			ResolutionMeters: resolution,
			Bounds:           geom.Bounds,
			Width:            geom.Width,
			Height:           geom.Height,
			Grid:             make([][]float64, geom.Height),
		}
		for row := 0; row < geom.Height; row++ {
			cells := make([]float64, geom.Width)
			for col := 0; col < geom.Width; col++ {
				cells[col] = models.NoDataValue
				if idx := owner[row*geom.Width+col]; idx >= 0 {
					if p, ok := valid[idx].Probabilities[scenario]; ok && !math.IsNaN(p) {
						cells[col] = p
					}
				}
			}
			out.Grid[row] = cells
		}
		result.Rasters[scenario] = out
	}

	return result, nil
}

// assignOwners maps every grid cell to the index of the basin covering its
// center, or -1. Basins are visited in input order and a cell is never
// reassigned, which makes the overlap tie-break deterministic.
func assignOwners(geom GridGeometry, basins []models.BasinFeature) []int {
	owner := make([]int, geom.Width*geom.Height)
	for i := range owner {
		owner[i] = -1
	}

	for idx, basin := range basins {
		rowStart, rowEnd, colStart, colEnd := geom.CellRange(PolygonBounds(basin.Geometry))
		for row := rowStart; row < rowEnd; row++ {
			for col := colStart; col < colEnd; col++ {
				cell := row*geom.Width + col
				if owner[cell] >= 0 {
					continue
				}
				if PolygonContains(basin.Geometry, geom.CellCenter(row, col)) {
					owner[cell] = idx
				}
			}
		}
	}
	return owner
}
