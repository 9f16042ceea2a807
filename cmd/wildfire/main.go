package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subashpoudel19/wildfire/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wildfire",
		Short: "Batch post-fire debris-flow hazard pipeline",
		Long: `wildfire batch-processes fire events through a debris-flow hazard
pipeline: per-fire preprocessing, hazard assessment, vector export and
probability raster rendering, with skip/resume across invocations.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "wildfire.yaml", "path to configuration file")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newInventoryCommand())
	rootCmd.AddCommand(newRasterizeCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
