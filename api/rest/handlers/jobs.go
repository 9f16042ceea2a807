package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/subashpoudel19/wildfire/core/models"
	"github.com/subashpoudel19/wildfire/core/repository"
)

// JobHandler serves persisted job records
type JobHandler struct {
	jobRepo *repository.JobRepository
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobRepo *repository.JobRepository) *JobHandler {
	return &JobHandler{jobRepo: jobRepo}
}

// ListJobs returns all job records, optionally filtered by state
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobRepo.ListJobs()
	if err != nil {
		http.Error(w, "Failed to fetch jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stateFilter := r.URL.Query().Get("state")
	items := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		if stateFilter != "" && string(job.State) != stateFilter {
			continue
		}
		items = append(items, jobSummary(job))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

// GetJob returns one fire's full record
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	fireKey := mux.Vars(r)["key"]

	job, err := h.jobRepo.GetJob(fireKey)
	if err != nil {
		http.Error(w, "Job not found: "+err.Error(), http.StatusNotFound)
		return
	}

	response := jobSummary(job)
	response["timing_seconds"] = job.Timing
	response["output_paths"] = job.OutputPaths
	response["warnings"] = job.Warnings

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func jobSummary(job *models.ProcessingJob) map[string]interface{} {
	summary := map[string]interface{}{
		"fire_key":           job.Fire.Key(),
		"fire_name":          job.Fire.Name,
		"year":               job.Fire.Year,
		"state":              job.State,
		"optimization_level": job.OptimizationLevel,
		"attempts":           job.AttemptCount,
		"input_size_bytes":   job.Fire.InputSizeBytes,
	}
	if job.Err != nil {
		summary["error"] = map[string]interface{}{
			"kind":    job.Err.Kind,
			"stage":   job.Err.Stage,
			"message": job.Err.Message,
		}
	}
	if job.FinishedAt != nil {
		summary["finished_at"] = job.FinishedAt
	}
	return summary
}
