package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/subashpoudel19/wildfire/core/repository"
)

// ReportHandler serves the aggregate batch report
type ReportHandler struct {
	jobRepo *repository.JobRepository
}

// NewReportHandler creates a new report handler
func NewReportHandler(jobRepo *repository.JobRepository) *ReportHandler {
	return &ReportHandler{jobRepo: jobRepo}
}

// GetReport returns batch-level counts plus per-fire outcomes, keyed by
// fire identity so consumers can look up a specific fire directly.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.jobRepo.ReadAggregateReport()
	if err != nil {
		http.Error(w, "Failed to read report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	fires := make(map[string]interface{}, len(report.Jobs))
	for key, job := range report.Jobs {
		fires[key] = jobSummary(job)
	}

	response := map[string]interface{}{
		"counts": map[string]int{
			"total":   report.Submitted,
			"done":    report.Done,
			"failed":  report.Failed,
			"skipped": report.Skipped,
		},
		"fires": fires,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
