package pipeline

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"github.com/subashpoudel19/wildfire/core/memory"
	"github.com/subashpoudel19/wildfire/core/models"
	"github.com/subashpoudel19/wildfire/core/raster"
)

// Options configures the per-fire state machine.
type Options struct {
	MaxAttempts      int
	Timeout          time.Duration // bound on one assessment model call
	RetryBackoff     time.Duration // base backoff, doubled per retry
	OutputFolder     string
	ScenarioIDs      []string
	ResolutionMeters float64
}

// Processor drives one fire through the assessment pipeline:
// Initialized -> Preprocessing -> Preprocessed -> Assessing -> Assessed ->
// Exporting -> Done, with Failed reachable from any non-terminal state.
// The geospatial computation itself is delegated to the collaborators;
// the processor owns sequencing, retries and bookkeeping.
type Processor struct {
	checker      InputChecker
	clipper      Clipper
	assessor     Assessor
	rasterWriter RasterWriter
	profiler     *memory.Profiler
	memSignal    memory.Signal
	opts         Options
}

// NewProcessor creates a new per-fire processor
func NewProcessor(
	checker InputChecker,
	clipper Clipper,
	assessor Assessor,
	rasterWriter RasterWriter,
	profiler *memory.Profiler,
	memSignal memory.Signal,
	opts Options,
) *Processor {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Processor{
		checker:      checker,
		clipper:      clipper,
		assessor:     assessor,
		rasterWriter: rasterWriter,
		profiler:     profiler,
		memSignal:    memSignal,
		opts:         opts,
	}
}

// Run executes the full state machine for one job. It always returns the
// job in a terminal state; failures are recorded on the job, never
// propagated, so one fire can never abort the batch.
func (p *Processor) Run(ctx context.Context, job *models.ProcessingJob) {
	fire := job.Fire
	log.Printf("[%s] Processing fire (%.1f MB)", fire.Key(), fire.InputSizeMB())

	// Initialized -> Preprocessing gate: required inputs must exist.
	if !p.checker.HasRequiredInputs(fire) {
		p.fail(job, models.NewInputDataError("initialize",
			"missing required inputs (perimeter=%t severity=%t)",
			fire.PerimeterPresent, fire.SeverityPresent))
		return
	}

	// The memory directive is computed fresh here, never cached: available
	// memory drifts over the batch's lifetime. The optimization level is
	// fixed for the remainder of the job.
	directive := p.profile(fire)
	job.OptimizationLevel = directive.Level
	log.Printf("[%s] Optimization: %s (%.1f GB free, chunk hint %d)",
		fire.Key(), directive.Level, directive.AvailableGB, directive.ChunkingHint)

	p.transition(job, models.StatePreprocessing)
	if !p.runStage(ctx, job, "preprocess", func(stageCtx context.Context) error {
		return p.clipper.Clip(stageCtx, fire, directive.ChunkingHint)
	}) {
		return
	}
	p.transition(job, models.StatePreprocessed)

	p.transition(job, models.StateAssessing)
	var basins []models.BasinFeature
	if !p.runStage(ctx, job, "assess", func(stageCtx context.Context) error {
		var err error
		basins, err = p.assessor.Assess(stageCtx, fire, job.OptimizationLevel)
		return err
	}) {
		return
	}
	p.transition(job, models.StateAssessed)

	p.transition(job, models.StateExporting)
	destination := filepath.Join(p.opts.OutputFolder, strconv.Itoa(fire.Year), fire.Name)
	if !p.runStage(ctx, job, "export", func(stageCtx context.Context) error {
		outputs, err := p.assessor.Export(stageCtx, fire, basins, destination)
		if err != nil {
			return err
		}
		for product, path := range outputs {
			job.RecordOutput(product, path)
		}
		return nil
	}) {
		return
	}

	p.rasterize(job, basins)

	p.transition(job, models.StateDone)
	now := time.Now()
	job.FinishedAt = &now
	log.Printf("[%s] Done (%d output(s))", fire.Key(), len(job.OutputPaths))
}

// rasterize renders the probability grids from the assessed basins.
// Invalid basins are excluded and recorded as warnings; they never fail
// the fire.
func (p *Processor) rasterize(job *models.ProcessingJob, basins []models.BasinFeature) {
	start := time.Now()
	defer func() {
		job.RecordTiming("rasterize", time.Since(start))
	}()

	result, err := raster.Rasterize(basins, p.opts.ScenarioIDs, p.opts.ResolutionMeters)
	if err != nil {
		// Only a non-positive resolution reaches here; treat it as a
		// configuration fault recorded against the job.
		job.AddWarning("rasterization skipped: " + err.Error())
		return
	}
	for _, invalid := range result.Invalid {
		warning := invalid.Err.Error() + " (basin " + strconv.Itoa(invalid.BasinID) + ")"
		job.AddWarning(warning)
		log.Printf("[%s] Excluded basin %d: %v", job.Fire.Key(), invalid.BasinID, invalid.Err)
	}

	paths, err := p.rasterWriter.WriteRasters(job.Fire, result.Rasters)
	if err != nil {
		job.AddWarning("raster write failed: " + err.Error())
		return
	}
	for product, path := range paths {
		job.RecordOutput(product, path)
	}
}

// runStage executes one stage with bounded retries. Only failures the
// collaborator classified as retryable are retried, with doubling backoff;
// exhausting max attempts fails the job with the last error retained.
// Returns false when the job reached Failed.
func (p *Processor) runStage(ctx context.Context, job *models.ProcessingJob, stage string, fn func(context.Context) error) bool {
	start := time.Now()
	defer func() {
		job.RecordTiming(stage, time.Since(start))
	}()

	backoff := p.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			p.fail(job, models.NewCancelledError(stage))
			return false
		}

		err := p.invoke(ctx, stage, fn)
		if err == nil {
			return true
		}

		perr := models.AsPipelineError(stage, err)
		job.AttemptCount++

		if !perr.Retryable || attempt >= p.opts.MaxAttempts {
			p.fail(job, perr)
			return false
		}

		log.Printf("[%s] %s attempt %d/%d failed (%s), retrying in %s",
			job.Fire.Key(), stage, attempt, p.opts.MaxAttempts, perr.Kind, backoff)
		select {
		case <-ctx.Done():
			p.fail(job, models.NewCancelledError(stage))
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// invoke runs one collaborator call under the configured time bound and
// maps deadline expiry to the timeout error kind.
func (p *Processor) invoke(ctx context.Context, stage string, fn func(context.Context) error) error {
	stageCtx := ctx
	cancel := func() {}
	if p.opts.Timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
	}
	defer cancel()

	err := fn(stageCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return models.NewTimeoutError(stage, err)
	}
	if errors.Is(err, context.Canceled) {
		return models.NewCancelledError(stage)
	}
	return err
}

func (p *Processor) profile(fire models.FireRecord) models.MemoryDirective {
	available, err := p.memSignal.CurrentAvailableBytes()
	if err != nil {
		log.Printf("[%s] Memory signal unavailable (%v), assuming constrained", fire.Key(), err)
		available = 0
	}
	return p.profiler.Profile(fire.InputSizeBytes, available)
}

func (p *Processor) transition(job *models.ProcessingJob, to models.JobState) {
	job.State = to
}

func (p *Processor) fail(job *models.ProcessingJob, perr *models.PipelineError) {
	job.Err = perr
	job.State = models.StateFailed
	now := time.Now()
	job.FinishedAt = &now
	log.Printf("[%s] Failed in %s stage: %v", job.Fire.Key(), perr.Stage, perr)
}
