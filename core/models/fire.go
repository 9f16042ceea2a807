package models

import "fmt"

// FireRecord identifies one fire event discovered by the catalog.
// A FireRecord is immutable once created; jobs reference it, they never own it.
type FireRecord struct {
	Name             string
	Year             int
	PerimeterPath    string
	SeverityPath     string
	DNBRPath         string
	DEMPath          string
	Folder           string
	PerimeterPresent bool
	SeverityPresent  bool
	InputSizeBytes   int64
}

// Key returns the identity used to key jobs and report entries.
// Fire names are unique within a year, so "year_name" is unique globally.
func (f FireRecord) Key() string {
	return fmt.Sprintf("%d_%s", f.Year, f.Name)
}

// InputSizeMB returns the fire's input size in megabytes.
func (f FireRecord) InputSizeMB() float64 {
	return float64(f.InputSizeBytes) / (1024 * 1024)
}
