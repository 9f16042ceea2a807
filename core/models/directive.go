package models

// MemoryDirective is the profiler's verdict for one job. It is computed
// fresh immediately before preprocessing, because available memory drifts
// over the batch's lifetime, and discarded once the stage completes.
type MemoryDirective struct {
	AvailableGB  float64
	InputSizeMB  float64
	Level        OptimizationLevel
	ChunkingHint int // max features per processing chunk; 0 means no chunking
}
