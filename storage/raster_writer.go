package storage

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/subashpoudel19/wildfire/core/models"
	"github.com/subashpoudel19/wildfire/core/raster"
)

// GridWriter persists raster grids as ESRI ASCII grid files: plain-text,
// georeferenced, with an explicit NODATA value, readable by any GIS tool.
type GridWriter struct {
	outputFolder string
}

// NewGridWriter creates a new grid writer rooted at the given folder.
func NewGridWriter(outputFolder string) *GridWriter {
	return &GridWriter{outputFolder: outputFolder}
}

// WriteRasters writes one .asc file per scenario under
// <output>/rasters/<fire_key>/ and returns product-name to path mappings.
// Rasters flagged empty are skipped: there is nothing to georeference.
func (w *GridWriter) WriteRasters(fire models.FireRecord, rasters map[string]*models.RasterOutput) (map[string]string, error) {
	fireDir := filepath.Join(w.outputFolder, "rasters", fire.Key())
	if err := os.MkdirAll(fireDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create raster folder: %w", err)
	}

	paths := make(map[string]string, len(rasters))
	for scenario, out := range rasters {
		if out.Empty {
			log.Printf("[%s] No basins for scenario %s, skipping raster", fire.Key(), scenario)
			continue
		}
		path := filepath.Join(fireDir, fmt.Sprintf("%s_P_%s.asc", fire.Key(), scenario))
		if err := writeASCGrid(path, out.Bounds, out.ResolutionMeters, out.Grid, formatProbability); err != nil {
			return nil, fmt.Errorf("failed to write raster for scenario %s: %w", scenario, err)
		}
		paths["raster_"+scenario] = path
	}
	return paths, nil
}

// WriteClassified derives the banded hazard grid from a probability raster
// and writes it next to it.
func (w *GridWriter) WriteClassified(fire models.FireRecord, out *models.RasterOutput) (string, error) {
	if out.Empty {
		return "", fmt.Errorf("cannot classify an empty raster")
	}
	fireDir := filepath.Join(w.outputFolder, "rasters", fire.Key())
	if err := os.MkdirAll(fireDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create raster folder: %w", err)
	}

	classes := raster.Classify(out)
	grid := make([][]float64, len(classes))
	for row, cells := range classes {
		grid[row] = make([]float64, len(cells))
		for col, class := range cells {
			if class == raster.HazardNoData {
				grid[row][col] = models.NoDataValue
			} else {
				grid[row][col] = float64(class)
			}
		}
	}

	path := filepath.Join(fireDir, fmt.Sprintf("%s_hazard_%s.asc", fire.Key(), out.ScenarioID))
	if err := writeASCGrid(path, out.Bounds, out.ResolutionMeters, grid, formatClass); err != nil {
		return "", err
	}
	return path, nil
}

func formatProbability(v float64) string {
	if v == models.NoDataValue {
		return "-9999"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatClass(v float64) string {
	if v == models.NoDataValue {
		return "-9999"
	}
	return strconv.Itoa(int(v))
}

// writeASCGrid writes rows north to south, matching the in-memory layout.
func writeASCGrid(path string, bounds models.Bounds, resolution float64, grid [][]float64, format func(float64) string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create grid file: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	height := len(grid)
	width := 0
	if height > 0 {
		width = len(grid[0])
	}

	fmt.Fprintf(buf, "ncols %d\n", width)
	fmt.Fprintf(buf, "nrows %d\n", height)
	fmt.Fprintf(buf, "xllcorner %.6f\n", bounds.MinX)
	fmt.Fprintf(buf, "yllcorner %.6f\n", bounds.MinY)
	fmt.Fprintf(buf, "cellsize %.6f\n", resolution)
	fmt.Fprintf(buf, "NODATA_value %d\n", int(models.NoDataValue))

	for _, row := range grid {
		for col, v := range row {
			if col > 0 {
				if err := buf.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := buf.WriteString(format(v)); err != nil {
				return err
			}
		}
		if err := buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	return buf.Flush()
}
