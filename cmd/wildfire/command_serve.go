package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/subashpoudel19/wildfire/api/rest/routes"
	"github.com/subashpoudel19/wildfire/core/repository"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve job records and the batch report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := repository.NewDB(cfg.StorePath)
			if err != nil {
				return err
			}
			defer db.Close()
			jobRepo := repository.NewJobRepository(db)

			r := mux.NewRouter()
			routes.SetupRoutes(r, jobRepo)

			// Health check endpoint
			r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("OK"))
			}).Methods("GET")

			server := &http.Server{
				Addr:    ":" + cfg.ServerPort,
				Handler: r,
			}

			// Graceful shutdown
			go func() {
				log.Printf("Starting server on port %s", cfg.ServerPort)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Println("Server exited")
			return nil
		},
	}
}
