package models

import "time"

// ProcessingJob is the unit of work for one fire. It is created by the
// orchestrator, mutated only by the per-fire state machine, and ends in a
// terminal state (Done, Failed or Skipped).
type ProcessingJob struct {
	ID                string
	Fire              FireRecord
	State             JobState
	OptimizationLevel OptimizationLevel
	AttemptCount      int
	Err               *PipelineError
	Timing            map[string]float64 // stage name -> elapsed seconds
	OutputPaths       map[string]string  // product name -> location
	Warnings          []string           // recoverable issues, e.g. excluded basins
	CreatedAt         time.Time
	FinishedAt        *time.Time
}

// JobState represents the current state of a processing job
type JobState string

const (
	StateInitialized   JobState = "initialized"
	StatePreprocessing JobState = "preprocessing"
	StatePreprocessed  JobState = "preprocessed"
	StateAssessing     JobState = "assessing"
	StateAssessed      JobState = "assessed"
	StateExporting     JobState = "exporting"
	StateDone          JobState = "done"
	StateFailed        JobState = "failed"
	StateSkipped       JobState = "skipped"
)

// Terminal reports whether no transition leaves the state.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateSkipped
}

// OptimizationLevel is the processing strategy chosen for a job before it
// enters preprocessing. It is fixed for the remainder of the job.
type OptimizationLevel string

const (
	OptimizationNone       OptimizationLevel = "none"
	OptimizationLight      OptimizationLevel = "light"
	OptimizationModerate   OptimizationLevel = "moderate"
	OptimizationAggressive OptimizationLevel = "aggressive"
)

// RecordTiming adds a stage's elapsed time to the job's timing map.
func (j *ProcessingJob) RecordTiming(stage string, elapsed time.Duration) {
	if j.Timing == nil {
		j.Timing = make(map[string]float64)
	}
	j.Timing[stage] = elapsed.Seconds()
}

// RecordOutput records the location of a produced artifact.
func (j *ProcessingJob) RecordOutput(product, path string) {
	if j.OutputPaths == nil {
		j.OutputPaths = make(map[string]string)
	}
	j.OutputPaths[product] = path
}

// AddWarning records a recoverable issue that did not fail the job.
func (j *ProcessingJob) AddWarning(warning string) {
	j.Warnings = append(j.Warnings, warning)
}
