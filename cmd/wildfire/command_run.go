package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/subashpoudel19/wildfire/config"
	"github.com/subashpoudel19/wildfire/core/catalog"
	"github.com/subashpoudel19/wildfire/core/memory"
	"github.com/subashpoudel19/wildfire/core/models"
	"github.com/subashpoudel19/wildfire/core/orchestrator"
	"github.com/subashpoudel19/wildfire/core/pipeline"
	"github.com/subashpoudel19/wildfire/core/repository"
	"github.com/subashpoudel19/wildfire/providers/wildcat"
	"github.com/subashpoudel19/wildfire/storage"
)

func newRunCommand() *cobra.Command {
	var wildcatBinary string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the full fire batch",
		Long: `run inventories the input folder, then drives every fire through the
hazard pipeline with bounded concurrency. Fires that already produced
outputs in a previous invocation are skipped when skip_existing is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBatch(cfg, wildcatBinary)
		},
	}

	cmd.Flags().StringVar(&wildcatBinary, "wildcat-binary", "", "path to the wildcat executable (default: wildcat on PATH)")
	return cmd
}

func runBatch(cfg *config.Config, wildcatBinary string) error {
	if err := os.MkdirAll(cfg.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	// Initialize the durable job store
	db, err := repository.NewDB(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer db.Close()
	jobRepo := repository.NewJobRepository(db)

	// Inventory the input folder
	cat := catalog.NewCatalog(cfg.RootFolder, cfg.SeverityFolder)
	fires, err := cat.Inventory(cfg.Years)
	if err != nil {
		return fmt.Errorf("failed to inventory fires: %w", err)
	}
	if len(fires) == 0 {
		log.Println("No fires found, nothing to do")
		return nil
	}

	// Initialize the memory profiler
	profiler := memory.NewProfiler(memory.Thresholds{
		LightMB:        cfg.Optimization.LightMB,
		ModerateMB:     cfg.Optimization.ModerateMB,
		AggressiveMB:   cfg.Optimization.AggressiveMB,
		PeakMultiplier: cfg.Optimization.PeakMultiplier,
	})

	// Initialize the assessment tool adapter and raster writer
	client := wildcat.NewClient(wildcatBinary, filepath.Join(cfg.OutputFolder, "wildcat_projects"))
	writer := storage.NewGridWriter(cfg.OutputFolder)

	processor := pipeline.NewProcessor(
		pipeline.RecordInputChecker{},
		client,
		client,
		writer,
		profiler,
		memory.NewSystemSignal(),
		pipeline.Options{
			MaxAttempts:      cfg.MaxAttempts,
			Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
			RetryBackoff:     time.Duration(cfg.RetryBackoffSeconds) * time.Second,
			OutputFolder:     cfg.OutputFolder,
			ScenarioIDs:      cfg.Raster.Scenarios,
			ResolutionMeters: cfg.Raster.ResolutionMeters,
		},
	)

	orch := orchestrator.NewOrchestrator(processor, jobRepo, cfg.ConcurrencyLimit)

	// Cooperative shutdown: a first interrupt cancels in-flight jobs, which
	// then end in a terminal state and are persisted like any other outcome.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := orch.Run(ctx, fires, cfg.SkipExisting)

	reportPath := filepath.Join(cfg.OutputFolder, "batch_report.json")
	if err := writeReport(report, reportPath); err != nil {
		log.Printf("Failed to write batch report: %v", err)
	} else {
		log.Printf("Batch report written to %s", reportPath)
	}

	if cfg.Upload.Enabled {
		uploadOutputs(ctx, cfg, report, reportPath)
	}

	if runErr != nil {
		return runErr
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d fires failed", report.Failed, report.Submitted)
	}
	return nil
}

// reportDocument is the serialized form of a batch report.
type reportDocument struct {
	StartedAt      time.Time               `json:"started_at"`
	FinishedAt     time.Time               `json:"finished_at"`
	ElapsedSeconds float64                 `json:"elapsed_seconds"`
	Submitted      int                     `json:"submitted"`
	Done           int                     `json:"done"`
	Failed         int                     `json:"failed"`
	Skipped        int                     `json:"skipped"`
	Fires          map[string]reportJobDoc `json:"fires"`
}

type reportJobDoc struct {
	JobID         string             `json:"job_id"`
	State         string             `json:"state"`
	Level         string             `json:"optimization_level,omitempty"`
	Attempts      int                `json:"attempts"`
	Error         string             `json:"error,omitempty"`
	TimingSeconds map[string]float64 `json:"timing_seconds,omitempty"`
	OutputPaths   map[string]string  `json:"output_paths,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}

func writeReport(report *orchestrator.Report, path string) error {
	doc := reportDocument{
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		ElapsedSeconds: report.Elapsed().Seconds(),
		Submitted:      report.Submitted,
		Done:           report.Done,
		Failed:         report.Failed,
		Skipped:        report.Skipped,
		Fires:          make(map[string]reportJobDoc, len(report.Jobs)),
	}
	for key, job := range report.Jobs {
		doc.Fires[key] = toJobDoc(job)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func toJobDoc(job *models.ProcessingJob) reportJobDoc {
	d := reportJobDoc{
		JobID:         job.ID,
		State:         string(job.State),
		Level:         string(job.OptimizationLevel),
		Attempts:      job.AttemptCount,
		TimingSeconds: job.Timing,
		OutputPaths:   job.OutputPaths,
		Warnings:      job.Warnings,
	}
	if job.Err != nil {
		d.Error = job.Err.Error()
	}
	return d
}

func uploadOutputs(ctx context.Context, cfg *config.Config, report *orchestrator.Report, reportPath string) {
	uploader, err := storage.NewS3Uploader(ctx, cfg.Upload.Bucket, cfg.Upload.Prefix, cfg.Upload.Region)
	if err != nil {
		log.Printf("Upload disabled, failed to initialize S3 client: %v", err)
		return
	}

	uploaded := 0
	for _, job := range report.Jobs {
		if job.State != models.StateDone {
			continue
		}
		uploaded += uploader.UploadJobOutputs(ctx, job)
	}
	if err := uploader.UploadReport(ctx, reportPath); err != nil {
		log.Printf("Failed to upload batch report: %v", err)
	}
	log.Printf("Uploaded %d artifacts to s3://%s/%s", uploaded, cfg.Upload.Bucket, cfg.Upload.Prefix)
}
