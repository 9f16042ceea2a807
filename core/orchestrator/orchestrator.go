package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subashpoudel19/wildfire/core/models"
)

// JobRunner executes the per-fire state machine. It must leave the job in
// a terminal state and never panic or propagate fire-local failures.
type JobRunner interface {
	Run(ctx context.Context, job *models.ProcessingJob)
}

// Store is the durable record of job outcomes. Writes are per-job-key and
// merge-safe, so concurrent jobs cannot lose each other's updates.
type Store interface {
	HasSuccessfulOutput(fire models.FireRecord) (bool, error)
	AppendJobRecord(job *models.ProcessingJob) error
}

// Orchestrator schedules fires onto a bounded pool of per-fire state
// machines, isolates per-fire failures, and aggregates the outcome report.
type Orchestrator struct {
	runner           JobRunner
	store            Store
	concurrencyLimit int

	mu       sync.Mutex
	storeErr error
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(runner JobRunner, store Store, concurrencyLimit int) *Orchestrator {
	if concurrencyLimit < 1 {
		concurrencyLimit = 1
	}
	return &Orchestrator{
		runner:           runner,
		store:            store,
		concurrencyLimit: concurrencyLimit,
	}
}

// Run processes all fires and returns the aggregate report. At most
// concurrencyLimit jobs are active at once. A single fire's failure is
// recorded and the batch continues; Run itself only returns an error for
// batch-scope faults, i.e. the durable store being unusable.
//
// On context cancellation, in-flight jobs end Failed with a cancelled
// error kind and completed jobs' outputs are preserved.
func (o *Orchestrator) Run(ctx context.Context, fires []models.FireRecord, skipExisting bool) (*Report, error) {
	report := NewReport()
	report.Submitted = len(fires)
	log.Printf("Batch starting: %d fires, concurrency %d, skip_existing=%t",
		len(fires), o.concurrencyLimit, skipExisting)

	sem := make(chan struct{}, o.concurrencyLimit)
	var wg sync.WaitGroup

	for _, fire := range fires {
		wg.Add(1)
		go func(fire models.FireRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			job := o.newJob(fire)
			o.process(ctx, job, skipExisting)
			o.finish(report, job)
		}(fire)
	}

	wg.Wait()
	report.FinishedAt = time.Now()

	log.Printf("Batch complete in %.1f min: %d done, %d failed, %d skipped",
		report.Elapsed().Minutes(), report.Done, report.Failed, report.Skipped)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.storeErr != nil {
		return report, fmt.Errorf("durable store failed during batch: %w", o.storeErr)
	}
	return report, nil
}

func (o *Orchestrator) newJob(fire models.FireRecord) *models.ProcessingJob {
	return &models.ProcessingJob{
		ID:        uuid.New().String(),
		Fire:      fire,
		State:     models.StateInitialized,
		CreatedAt: time.Now(),
	}
}

// process decides between skipping and running one fire. Skipped is only
// reachable from Initialized: once a state machine starts, it runs to a
// terminal state.
func (o *Orchestrator) process(ctx context.Context, job *models.ProcessingJob, skipExisting bool) {
	if skipExisting {
		done, err := o.store.HasSuccessfulOutput(job.Fire)
		if err != nil {
			o.recordStoreError(err)
		} else if done {
			log.Printf("[%s] Skipping, already processed", job.Fire.Key())
			job.State = models.StateSkipped
			now := time.Now()
			job.FinishedAt = &now
			return
		}
	}
	o.runner.Run(ctx, job)
}

// finish persists the job record and folds it into the report. The store
// write happens per job so a later invocation can resume mid-batch.
func (o *Orchestrator) finish(report *Report, job *models.ProcessingJob) {
	if !job.State.Terminal() {
		// The runner contract guarantees a terminal state; defend the
		// report invariant anyway.
		job.Err = models.AsPipelineError("orchestrate",
			fmt.Errorf("job ended in non-terminal state %s", job.State))
		job.State = models.StateFailed
	}

	if err := o.store.AppendJobRecord(job); err != nil {
		o.recordStoreError(err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	report.record(job)
}

func (o *Orchestrator) recordStoreError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.storeErr == nil {
		o.storeErr = err
	}
	log.Printf("Durable store error: %v", err)
}
