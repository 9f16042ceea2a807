package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subashpoudel19/wildfire/core/models"
)

type fakeRunner struct {
	mu        sync.Mutex
	active    int
	maxActive int
	ran       []string
	failFires map[string]bool
	delay     time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, job *models.ProcessingJob) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.ran = append(f.ran, job.Fire.Key())
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			job.State = models.StateFailed
			job.Err = models.NewCancelledError("assess")
			return
		case <-time.After(f.delay):
		}
	}
	if ctx.Err() != nil {
		job.State = models.StateFailed
		job.Err = models.NewCancelledError("assess")
		return
	}
	if f.failFires[job.Fire.Key()] {
		job.State = models.StateFailed
		job.Err = models.NewAssessmentError("assess", false, errors.New("model fault"))
		return
	}
	job.State = models.StateDone
}

type fakeStore struct {
	mu         sync.Mutex
	successful map[string]bool
	appended   []string
	appendErr  error
	lookupErr  error
}

func (f *fakeStore) HasSuccessfulOutput(fire models.FireRecord) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.successful[fire.Key()], nil
}

func (f *fakeStore) AppendJobRecord(job *models.ProcessingJob) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, job.Fire.Key())
	return nil
}

func makeFires(n int) []models.FireRecord {
	fires := make([]models.FireRecord, n)
	for i := range fires {
		fires[i] = models.FireRecord{
			Name:             fmt.Sprintf("fire%02d", i),
			Year:             2021,
			PerimeterPresent: true,
			SeverityPresent:  true,
		}
	}
	return fires
}

func TestRun_AllJobsReachTerminalState(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeStore{}
	o := NewOrchestrator(runner, store, 4)

	fires := makeFires(10)
	report, err := o.Run(context.Background(), fires, false)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Submitted)
	assert.Equal(t, 10, report.Done)
	assert.Len(t, report.Jobs, 10)
	for key, job := range report.Jobs {
		assert.True(t, job.State.Terminal(), "job %s left in state %s", key, job.State)
	}
	// Every job was persisted for resumability.
	assert.Len(t, store.appended, 10)
}

func TestRun_SingleFailureDoesNotAbortBatch(t *testing.T) {
	runner := &fakeRunner{failFires: map[string]bool{"2021_fire03": true}}
	o := NewOrchestrator(runner, &fakeStore{}, 2)

	report, err := o.Run(context.Background(), makeFires(6), false)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Done)
	assert.Equal(t, 1, report.Failed)

	failed := report.Jobs["2021_fire03"]
	require.NotNil(t, failed)
	require.NotNil(t, failed.Err)
	assert.Equal(t, models.ErrAssessment, failed.Err.Kind)
}

func TestRun_SkipExisting(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeStore{successful: map[string]bool{"2021_fire01": true}}
	o := NewOrchestrator(runner, store, 2)

	report, err := o.Run(context.Background(), makeFires(3), true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Done)
	assert.Equal(t, models.StateSkipped, report.Jobs["2021_fire01"].State)
	// The skipped fire never reached the state machine.
	assert.NotContains(t, runner.ran, "2021_fire01")
}

func TestRun_SkipExistingFalseRunsEverything(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeStore{successful: map[string]bool{"2021_fire01": true}}
	o := NewOrchestrator(runner, store, 2)

	report, err := o.Run(context.Background(), makeFires(3), false)
	require.NoError(t, err)

	assert.Zero(t, report.Skipped)
	assert.Len(t, runner.ran, 3)
}

func TestRun_ConcurrencyBounded(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	o := NewOrchestrator(runner, &fakeStore{}, 3)

	_, err := o.Run(context.Background(), makeFires(12), false)
	require.NoError(t, err)

	assert.LessOrEqual(t, runner.maxActive, 3)
	assert.Greater(t, runner.maxActive, 0)
}

func TestRun_CancellationEndsJobsInTerminalState(t *testing.T) {
	runner := &fakeRunner{delay: 50 * time.Millisecond}
	o := NewOrchestrator(runner, &fakeStore{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	report, err := o.Run(ctx, makeFires(8), false)
	require.NoError(t, err)

	assert.Len(t, report.Jobs, 8)
	for _, job := range report.Jobs {
		assert.True(t, job.State.Terminal())
		if job.State == models.StateFailed {
			require.NotNil(t, job.Err)
			assert.Equal(t, models.ErrCancelled, job.Err.Kind)
		}
	}
}

func TestRun_StoreFailureIsBatchFatal(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("disk full")}
	o := NewOrchestrator(&fakeRunner{}, store, 2)

	report, err := o.Run(context.Background(), makeFires(3), false)
	require.Error(t, err)
	// The report is still returned for diagnostics.
	require.NotNil(t, report)
	assert.Len(t, report.Jobs, 3)
}
