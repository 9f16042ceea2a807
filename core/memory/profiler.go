package memory

import (
	"math"

	"github.com/subashpoudel19/wildfire/core/models"
)

// Thresholds configures the profiler's size classification in megabytes.
// Each level's threshold must be larger than the previous one.
type Thresholds struct {
	LightMB      float64
	ModerateMB   float64
	AggressiveMB float64
	// PeakMultiplier estimates peak in-memory usage as a multiple of input
	// size, accounting for geometry expansion during preprocessing.
	PeakMultiplier float64
}

// DefaultThresholds mirrors the fire-size bands observed in production runs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LightMB:        10,
		ModerateMB:     50,
		AggressiveMB:   100,
		PeakMultiplier: 4.0,
	}
}

// Chunk sizes applied when a level calls for bounded-batch processing.
const (
	moderateChunkFeatures   = 512
	aggressiveChunkFeatures = 256
	minChunkFeatures        = 64
)

// Profiler classifies input size against available memory. It holds only
// thresholds; the memory signal itself is passed per call so the directive
// always reflects memory free at that moment.
type Profiler struct {
	thresholds Thresholds
}

// NewProfiler creates a new profiler with the given thresholds.
func NewProfiler(thresholds Thresholds) *Profiler {
	return &Profiler{thresholds: thresholds}
}

// Profile produces a MemoryDirective for one job. It is a pure function of
// its arguments: no sampling, no caching, no side effects. Zero-size input
// yields level none.
func (p *Profiler) Profile(inputSizeBytes, availableMemoryBytes int64) models.MemoryDirective {
	if inputSizeBytes < 0 {
		inputSizeBytes = 0
	}
	if availableMemoryBytes < 0 {
		availableMemoryBytes = 0
	}

	sizeMB := float64(inputSizeBytes) / (1024 * 1024)
	availableGB := float64(availableMemoryBytes) / (1024 * 1024 * 1024)

	directive := models.MemoryDirective{
		AvailableGB: availableGB,
		InputSizeMB: sizeMB,
	}

	switch {
	case sizeMB == 0 || sizeMB < p.thresholds.LightMB:
		directive.Level = models.OptimizationNone
	case sizeMB < p.thresholds.ModerateMB:
		directive.Level = models.OptimizationLight
	case sizeMB < p.thresholds.AggressiveMB:
		directive.Level = models.OptimizationModerate
		directive.ChunkingHint = moderateChunkFeatures
	default:
		directive.Level = models.OptimizationAggressive
		directive.ChunkingHint = aggressiveChunkFeatures
	}

	// Cross-check against memory free right now. If the projected peak does
	// not fit even at the aggressive level, force chunked processing with
	// batches shrunk in proportion to the overshoot.
	projected := float64(inputSizeBytes) * p.thresholds.PeakMultiplier
	if inputSizeBytes > 0 && projected > float64(availableMemoryBytes) {
		directive.Level = models.OptimizationAggressive
		overshoot := 1
		if availableMemoryBytes > 0 {
			overshoot = int(math.Ceil(projected / float64(availableMemoryBytes)))
		} else {
			overshoot = aggressiveChunkFeatures / minChunkFeatures
		}
		hint := aggressiveChunkFeatures / overshoot
		if hint < minChunkFeatures {
			hint = minChunkFeatures
		}
		directive.ChunkingHint = hint
	}

	return directive
}
