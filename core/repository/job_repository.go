package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/subashpoudel19/wildfire/core/models"
	"github.com/subashpoudel19/wildfire/core/orchestrator"
)

// JobRepository handles database operations for job records. Each record
// is keyed by fire identity, so concurrent writers touch disjoint rows and
// a rewrite of one fire's record can never clobber another's.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// AppendJobRecord upserts the record for a job's fire. The newest terminal
// state wins, which is what resumption wants: a retried fire that now
// succeeded replaces its old failure. The one exception is a skip, which
// must never downgrade a done row: the fire was only skipped because it
// had completed, and the completed record keeps its outputs and timings
// so later invocations still recognize the fire as done.
func (r *JobRepository) AppendJobRecord(job *models.ProcessingJob) error {
	timingJSON, err := json.Marshal(job.Timing)
	if err != nil {
		return fmt.Errorf("failed to serialize timings: %w", err)
	}
	outputsJSON, err := json.Marshal(job.OutputPaths)
	if err != nil {
		return fmt.Errorf("failed to serialize outputs: %w", err)
	}
	warnings := job.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to serialize warnings: %w", err)
	}

	var errKind, errStage, errMessage sql.NullString
	if job.Err != nil {
		errKind = sql.NullString{String: string(job.Err.Kind), Valid: true}
		errStage = sql.NullString{String: job.Err.Stage, Valid: true}
		errMessage = sql.NullString{String: job.Err.Message, Valid: true}
	}
	var finishedAt sql.NullTime
	if job.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *job.FinishedAt, Valid: true}
	}

	query := `
		INSERT INTO jobs (
			fire_key, job_id, fire_name, fire_year, state, level, attempts,
			error_kind, error_stage, error_message,
			timing_json, outputs_json, warnings_json,
			input_size, created_at, finished_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fire_key) DO UPDATE SET
			job_id = excluded.job_id,
			state = excluded.state,
			level = excluded.level,
			attempts = excluded.attempts,
			error_kind = excluded.error_kind,
			error_stage = excluded.error_stage,
			error_message = excluded.error_message,
			timing_json = excluded.timing_json,
			outputs_json = excluded.outputs_json,
			warnings_json = excluded.warnings_json,
			input_size = excluded.input_size,
			finished_at = excluded.finished_at,
			updated_at = excluded.updated_at
		WHERE NOT (jobs.state = 'done' AND excluded.state = 'skipped')
	`

	_, err = r.db.Exec(query,
		job.Fire.Key(),
		job.ID,
		job.Fire.Name,
		job.Fire.Year,
		job.State,
		job.OptimizationLevel,
		job.AttemptCount,
		errKind,
		errStage,
		errMessage,
		string(timingJSON),
		string(outputsJSON),
		string(warningsJSON),
		job.Fire.InputSizeBytes,
		job.CreatedAt,
		finishedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to persist job record: %w", err)
	}
	return nil
}

// HasSuccessfulOutput reports whether the fire already completed in a
// prior run, enabling skip_existing resumption.
func (r *JobRepository) HasSuccessfulOutput(fire models.FireRecord) (bool, error) {
	var state string
	err := r.db.QueryRow(`SELECT state FROM jobs WHERE fire_key = ?`, fire.Key()).Scan(&state)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query job record: %w", err)
	}
	return models.JobState(state) == models.StateDone, nil
}

// GetJob retrieves one fire's record by its key.
func (r *JobRepository) GetJob(fireKey string) (*models.ProcessingJob, error) {
	row := r.db.QueryRow(selectColumns+` FROM jobs WHERE fire_key = ?`, fireKey)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no record for fire %s", fireKey)
	}
	return job, err
}

// ListJobs returns all persisted job records, newest first.
func (r *JobRepository) ListJobs() ([]*models.ProcessingJob, error) {
	rows, err := r.db.Query(selectColumns + ` FROM jobs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ReadAggregateReport reconstructs the batch report from persisted
// records. This is the read side consumers use across invocations.
func (r *JobRepository) ReadAggregateReport() (*orchestrator.Report, error) {
	jobs, err := r.ListJobs()
	if err != nil {
		return nil, err
	}
	report := orchestrator.NewReport()
	report.Submitted = len(jobs)
	for _, job := range jobs {
		report.Jobs[job.Fire.Key()] = job
		switch job.State {
		case models.StateDone:
			report.Done++
		case models.StateSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	return report, nil
}

const selectColumns = `
	SELECT job_id, fire_name, fire_year, state, level, attempts,
		error_kind, error_stage, error_message,
		timing_json, outputs_json, warnings_json,
		input_size, created_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	var errKind, errStage, errMessage sql.NullString
	var timingJSON, outputsJSON, warningsJSON string
	var finishedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Fire.Name,
		&job.Fire.Year,
		&job.State,
		&job.OptimizationLevel,
		&job.AttemptCount,
		&errKind,
		&errStage,
		&errMessage,
		&timingJSON,
		&outputsJSON,
		&warningsJSON,
		&job.Fire.InputSizeBytes,
		&job.CreatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if errKind.Valid {
		job.Err = &models.PipelineError{
			Kind:    models.ErrorKind(errKind.String),
			Stage:   errStage.String,
			Message: errMessage.String,
		}
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	if err := json.Unmarshal([]byte(timingJSON), &job.Timing); err != nil {
		return nil, fmt.Errorf("corrupt timing record: %w", err)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &job.OutputPaths); err != nil {
		return nil, fmt.Errorf("corrupt outputs record: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &job.Warnings); err != nil {
		return nil, fmt.Errorf("corrupt warnings record: %w", err)
	}
	return &job, nil
}
