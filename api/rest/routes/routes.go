package routes

import (
	"github.com/gorilla/mux"

	"github.com/subashpoudel19/wildfire/api/rest/handlers"
	"github.com/subashpoudel19/wildfire/core/repository"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, jobRepo *repository.JobRepository) {
	jobHandler := handlers.NewJobHandler(jobRepo)
	reportHandler := handlers.NewReportHandler(jobRepo)

	api := r.PathPrefix("/v1").Subrouter()

	api.HandleFunc("/report", reportHandler.GetReport).Methods("GET")
	api.HandleFunc("/jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{key}", jobHandler.GetJob).Methods("GET")
}
