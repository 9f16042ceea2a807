package pipeline

import (
	"context"

	"github.com/subashpoudel19/wildfire/core/models"
)

// InputChecker verifies that a fire's required inputs exist before any work
// starts. This component checks, it never produces: acquisition of the
// underlying bundles is someone else's job.
type InputChecker interface {
	HasRequiredInputs(fire models.FireRecord) bool
}

// Clipper clips the shared datasets (soil, EVT, severity) to a fire's
// extent. A non-zero chunkHint asks the clipper to split the operation
// into batches of at most that many features to bound peak memory.
type Clipper interface {
	Clip(ctx context.Context, fire models.FireRecord, chunkHint int) error
}

// Assessor is the external debris-flow hazard model boundary. Assess runs
// the hazard computation; Export writes the per-basin vector products
// (basins, segments, outlets) to a fire-specific destination and returns
// the product name to path mapping.
type Assessor interface {
	Assess(ctx context.Context, fire models.FireRecord, level models.OptimizationLevel) ([]models.BasinFeature, error)
	Export(ctx context.Context, fire models.FireRecord, basins []models.BasinFeature, destination string) (map[string]string, error)
}

// RasterWriter persists rendered probability grids and returns the product
// name to path mapping for the job record.
type RasterWriter interface {
	WriteRasters(fire models.FireRecord, rasters map[string]*models.RasterOutput) (map[string]string, error)
}

// RecordInputChecker is the default checker: it trusts the artifact flags
// the catalog recorded at inventory time.
type RecordInputChecker struct{}

// HasRequiredInputs requires a fire perimeter and severity data.
func (RecordInputChecker) HasRequiredInputs(fire models.FireRecord) bool {
	return fire.PerimeterPresent && fire.SeverityPresent
}
