package orchestrator

import (
	"time"

	"github.com/subashpoudel19/wildfire/core/models"
)

// Report aggregates per-job outcomes for one batch run. Entries are keyed
// by fire identity so consumers can look up a specific fire regardless of
// completion order.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Submitted  int
	Done       int
	Failed     int
	Skipped    int
	Jobs       map[string]*models.ProcessingJob
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		StartedAt: time.Now(),
		Jobs:      make(map[string]*models.ProcessingJob),
	}
}

// record adds one finished job. Callers must hold the orchestrator's lock.
func (r *Report) record(job *models.ProcessingJob) {
	r.Jobs[job.Fire.Key()] = job
	switch job.State {
	case models.StateDone:
		r.Done++
	case models.StateSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Elapsed returns the batch wall-clock duration.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
