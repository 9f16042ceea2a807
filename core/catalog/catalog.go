package catalog

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/subashpoudel19/wildfire/core/models"
)

// Catalog enumerates fire events and their input artifacts. Fire data is
// laid out as <root>/<year>/<fire_name>/ with MTBS bundle contents inside;
// severity rasters live in a shared folder, one file per year.
type Catalog struct {
	rootFolder   string
	severityBase string
}

// NewCatalog creates a new fire catalog
func NewCatalog(rootFolder, severityBase string) *Catalog {
	return &Catalog{
		rootFolder:   rootFolder,
		severityBase: severityBase,
	}
}

// Inventory scans the requested years and returns one immutable FireRecord
// per fire folder. An empty years slice means every year folder under the
// root. Records are returned sorted by input size ascending, so batches
// surface cheap failures early and ramp memory pressure gradually.
func (c *Catalog) Inventory(years []int) ([]models.FireRecord, error) {
	if len(years) == 0 {
		discovered, err := c.discoverYears()
		if err != nil {
			return nil, err
		}
		years = discovered
	}

	var fires []models.FireRecord
	for _, year := range years {
		yearDir := filepath.Join(c.rootFolder, strconv.Itoa(year))
		entries, err := os.ReadDir(yearDir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("No fire data for year %d, skipping", year)
				continue
			}
			return nil, fmt.Errorf("failed to read year folder %s: %w", yearDir, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			record, err := c.inventoryFire(year, entry.Name(), filepath.Join(yearDir, entry.Name()))
			if err != nil {
				return nil, err
			}
			fires = append(fires, record)
		}
	}

	sort.SliceStable(fires, func(i, j int) bool {
		return fires[i].InputSizeBytes < fires[j].InputSizeBytes
	})

	log.Printf("Inventoried %d fires across %d year(s)", len(fires), len(years))
	return fires, nil
}

// inventoryFire builds the record for one fire folder: locate the required
// artifacts and total up the input size.
func (c *Catalog) inventoryFire(year int, name, folder string) (models.FireRecord, error) {
	record := models.FireRecord{
		Name:   name,
		Year:   year,
		Folder: folder,
	}

	var totalSize int64
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		totalSize += info.Size()

		lower := strings.ToLower(d.Name())
		switch {
		case strings.Contains(lower, "burn_bndy") && strings.HasSuffix(lower, ".shp"):
			record.PerimeterPath = path
			record.PerimeterPresent = true
		case strings.Contains(lower, "dnbr") && strings.HasSuffix(lower, ".tif"):
			record.DNBRPath = path
		case strings.Contains(lower, "dem") && strings.HasSuffix(lower, ".tif"):
			record.DEMPath = path
		}
		return nil
	})
	if err != nil {
		return models.FireRecord{}, fmt.Errorf("failed to scan fire folder %s: %w", folder, err)
	}
	record.InputSizeBytes = totalSize

	if severity := c.severityPathForYear(year); severity != "" {
		record.SeverityPath = severity
		record.SeverityPresent = true
	}

	return record, nil
}

// severityPathForYear locates the shared MTBS severity raster for a year,
// or returns "" when none exists (severity is then estimated from dNBR
// downstream).
func (c *Catalog) severityPathForYear(year int) string {
	if c.severityBase == "" {
		return ""
	}
	path := filepath.Join(c.severityBase, fmt.Sprintf("mtbs_CA_%d.tif", year))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (c *Catalog) discoverYears() ([]int, error) {
	entries, err := os.ReadDir(c.rootFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to read root folder %s: %w", c.rootFolder, err)
	}
	var years []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		year, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}
