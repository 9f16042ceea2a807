package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subashpoudel19/wildfire/core/memory"
	"github.com/subashpoudel19/wildfire/core/models"
)

type fakeClipper struct {
	calls     int
	failTimes int
	err       error
}

func (f *fakeClipper) Clip(ctx context.Context, fire models.FireRecord, chunkHint int) error {
	f.calls++
	if f.failTimes > 0 {
		f.failTimes--
		return f.err
	}
	return nil
}

type fakeAssessor struct {
	assessCalls int
	exportCalls int
	failTimes   int
	err         error
	basins      []models.BasinFeature
	block       time.Duration
}

func (f *fakeAssessor) Assess(ctx context.Context, fire models.FireRecord, level models.OptimizationLevel) ([]models.BasinFeature, error) {
	f.assessCalls++
	if f.block > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.block):
		}
	}
	if f.failTimes > 0 {
		f.failTimes--
		return nil, f.err
	}
	return f.basins, nil
}

func (f *fakeAssessor) Export(ctx context.Context, fire models.FireRecord, basins []models.BasinFeature, destination string) (map[string]string, error) {
	f.exportCalls++
	return map[string]string{"basins_geojson": destination + "/basins.geojson"}, nil
}

type fakeRasterWriter struct {
	written map[string]*models.RasterOutput
	err     error
}

func (f *fakeRasterWriter) WriteRasters(fire models.FireRecord, rasters map[string]*models.RasterOutput) (map[string]string, error) {
	f.written = rasters
	if f.err != nil {
		return nil, f.err
	}
	paths := make(map[string]string, len(rasters))
	for scenario := range rasters {
		paths["raster_"+scenario] = "/out/" + fire.Key() + "_" + scenario + ".asc"
	}
	return paths, nil
}

func testFire() models.FireRecord {
	return models.FireRecord{
		Name:             "dixie",
		Year:             2021,
		PerimeterPresent: true,
		SeverityPresent:  true,
		InputSizeBytes:   20 * 1024 * 1024,
	}
}

func testBasins() []models.BasinFeature {
	return []models.BasinFeature{
		{
			ID: 0,
			Geometry: models.Polygon{Exterior: models.Ring{
				{X: 0, Y: 0}, {X: 60, Y: 0}, {X: 60, Y: 60}, {X: 0, Y: 60},
			}},
			Probabilities: map[string]float64{"16mmh": 0.5},
		},
	}
}

func newTestProcessor(clipper *fakeClipper, assessor *fakeAssessor, writer *fakeRasterWriter, opts Options) *Processor {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.ScenarioIDs == nil {
		opts.ScenarioIDs = []string{"16mmh"}
	}
	if opts.ResolutionMeters == 0 {
		opts.ResolutionMeters = 30
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	return NewProcessor(
		RecordInputChecker{},
		clipper,
		assessor,
		writer,
		memory.NewProfiler(memory.DefaultThresholds()),
		&memory.StaticSignal{Bytes: 16 << 30},
		opts,
	)
}

func newTestJob() *models.ProcessingJob {
	return &models.ProcessingJob{
		Fire:      testFire(),
		State:     models.StateInitialized,
		CreatedAt: time.Now(),
	}
}

func TestRun_HappyPath(t *testing.T) {
	clipper := &fakeClipper{}
	assessor := &fakeAssessor{basins: testBasins()}
	writer := &fakeRasterWriter{}
	p := newTestProcessor(clipper, assessor, writer, Options{})

	job := newTestJob()
	p.Run(context.Background(), job)

	assert.Equal(t, models.StateDone, job.State)
	assert.Nil(t, job.Err)
	assert.Equal(t, 1, clipper.calls)
	assert.Equal(t, 1, assessor.assessCalls)
	assert.Equal(t, 1, assessor.exportCalls)
	assert.Equal(t, models.OptimizationLight, job.OptimizationLevel)
	assert.NotNil(t, job.FinishedAt)

	assert.Contains(t, job.Timing, "preprocess")
	assert.Contains(t, job.Timing, "assess")
	assert.Contains(t, job.Timing, "export")
	assert.Contains(t, job.Timing, "rasterize")

	assert.Contains(t, job.OutputPaths, "basins_geojson")
	assert.Contains(t, job.OutputPaths, "raster_16mmh")
	require.NotNil(t, writer.written["16mmh"])
}

func TestRun_MissingInputsFailsImmediately(t *testing.T) {
	clipper := &fakeClipper{}
	assessor := &fakeAssessor{}
	p := newTestProcessor(clipper, assessor, &fakeRasterWriter{}, Options{})

	job := newTestJob()
	job.Fire.SeverityPresent = false
	p.Run(context.Background(), job)

	assert.Equal(t, models.StateFailed, job.State)
	require.NotNil(t, job.Err)
	assert.Equal(t, models.ErrInputData, job.Err.Kind)
	// Nothing downstream runs.
	assert.Zero(t, clipper.calls)
	assert.Zero(t, assessor.assessCalls)
}

func TestRun_RetryableAssessmentErrorRetries(t *testing.T) {
	assessor := &fakeAssessor{
		basins:    testBasins(),
		failTimes: 2,
		err:       models.NewAssessmentError("assess", true, errors.New("resource exhausted")),
	}
	p := newTestProcessor(&fakeClipper{}, assessor, &fakeRasterWriter{}, Options{MaxAttempts: 3})

	job := newTestJob()
	p.Run(context.Background(), job)

	assert.Equal(t, models.StateDone, job.State)
	assert.Equal(t, 3, assessor.assessCalls)
	assert.Equal(t, 2, job.AttemptCount)
}

func TestRun_ExhaustedRetriesFailWithLastError(t *testing.T) {
	assessor := &fakeAssessor{
		failTimes: 10,
		err:       models.NewAssessmentError("assess", true, errors.New("resource exhausted")),
	}
	p := newTestProcessor(&fakeClipper{}, assessor, &fakeRasterWriter{}, Options{MaxAttempts: 2})

	job := newTestJob()
	p.Run(context.Background(), job)

	assert.Equal(t, models.StateFailed, job.State)
	require.NotNil(t, job.Err)
	assert.Equal(t, models.ErrAssessment, job.Err.Kind)
	assert.Equal(t, 2, assessor.assessCalls)
	assert.Equal(t, 2, job.AttemptCount)
	// Export never reached.
	assert.Zero(t, assessor.exportCalls)
}

func TestRun_NonRetryableErrorFailsImmediately(t *testing.T) {
	clipper := &fakeClipper{
		failTimes: 1,
		err:       models.NewInputDataError("preprocess", "fire perimeter is empty"),
	}
	p := newTestProcessor(clipper, &fakeAssessor{}, &fakeRasterWriter{}, Options{MaxAttempts: 5})

	job := newTestJob()
	p.Run(context.Background(), job)

	assert.Equal(t, models.StateFailed, job.State)
	require.NotNil(t, job.Err)
	assert.Equal(t, models.ErrInputData, job.Err.Kind)
	assert.Equal(t, 1, clipper.calls)
}

func TestRun_AssessmentTimeout(t *testing.T) {
	assessor := &fakeAssessor{block: 200 * time.Millisecond}
	p := newTestProcessor(&fakeClipper{}, assessor, &fakeRasterWriter{}, Options{
		MaxAttempts: 1,
		Timeout:     10 * time.Millisecond,
	})

	job := newTestJob()
	p.Run(context.Background(), job)

	assert.Equal(t, models.StateFailed, job.State)
	require.NotNil(t, job.Err)
	assert.Equal(t, models.ErrTimeout, job.Err.Kind)
}

func TestRun_CancellationReachesSafeTerminalState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assessor := &fakeAssessor{basins: testBasins()}
	p := newTestProcessor(&fakeClipper{}, assessor, &fakeRasterWriter{}, Options{})

	job := newTestJob()
	p.Run(ctx, job)

	assert.Equal(t, models.StateFailed, job.State)
	require.NotNil(t, job.Err)
	assert.Equal(t, models.ErrCancelled, job.Err.Kind)
}

func TestRun_RasterWriteFailureStillRecordsTiming(t *testing.T) {
	assessor := &fakeAssessor{basins: testBasins()}
	writer := &fakeRasterWriter{err: errors.New("disk full")}
	p := newTestProcessor(&fakeClipper{}, assessor, writer, Options{})

	job := newTestJob()
	p.Run(context.Background(), job)

	// A raster write fault is a warning, not a failure, and the stage's
	// elapsed time survives for diagnosis.
	assert.Equal(t, models.StateDone, job.State)
	require.NotEmpty(t, job.Warnings)
	assert.Contains(t, job.Warnings[0], "raster write failed")
	assert.Contains(t, job.Timing, "rasterize")
}

func TestRun_InvalidBasinRecordedAsWarning(t *testing.T) {
	bowtie := models.BasinFeature{
		ID: 3,
		Geometry: models.Polygon{Exterior: models.Ring{
			{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: -5, Y: 5},
		}},
		Probabilities: map[string]float64{"16mmh": 1.0},
	}
	assessor := &fakeAssessor{basins: append(testBasins(), bowtie)}
	p := newTestProcessor(&fakeClipper{}, assessor, &fakeRasterWriter{}, Options{})

	job := newTestJob()
	p.Run(context.Background(), job)

	// Excluded basin is reported, but the fire still completes.
	assert.Equal(t, models.StateDone, job.State)
	require.NotEmpty(t, job.Warnings)
	assert.Contains(t, job.Warnings[0], "geometry")
}
