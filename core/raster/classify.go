package raster

import "github.com/subashpoudel19/wildfire/core/models"

// Hazard classes derived from debris-flow probability.
const (
	HazardNoData   = 0
	HazardLow      = 1
	HazardModerate = 2
	HazardHigh     = 3
	HazardVeryHigh = 4
)

// classBreaks are the probability thresholds separating hazard classes:
// [0,0.25) low, [0.25,0.50) moderate, [0.50,0.75) high, [0.75,1] very high.
var classBreaks = [...]float64{0.25, 0.50, 0.75}

// Classify converts a probability raster into a banded hazard grid using
// the standard USGS-style class breaks. Nodata cells stay nodata.
func Classify(src *models.RasterOutput) [][]uint8 {
	classes := make([][]uint8, len(src.Grid))
	for row, cells := range src.Grid {
		out := make([]uint8, len(cells))
		for col, v := range cells {
			if v == models.NoDataValue {
				out[col] = HazardNoData
				continue
			}
			class := uint8(HazardLow)
			for _, brk := range classBreaks {
				if v >= brk {
					class++
				}
			}
			out[col] = class
		}
		classes[row] = out
	}
	return classes
}
