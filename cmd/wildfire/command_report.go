package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/subashpoudel19/wildfire/core/repository"
)

func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the aggregate outcome of the last batch",
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

			report, err := repository.NewJobRepository(db).ReadAggregateReport()
			if err != nil {
				return err
			}
			if len(report.Jobs) == 0 {
				fmt.Println("No job records found")
				return nil
			}

			keys := make([]string, 0, len(report.Jobs))
			for key := range report.Jobs {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIRE\tSTATE\tLEVEL\tATTEMPTS\tERROR")
			for _, key := range keys {
				job := report.Jobs[key]
				errText := ""
				if job.Err != nil {
					errText = job.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					key, job.State, job.OptimizationLevel, job.AttemptCount, errText)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d fires: %d done, %d failed, %d skipped\n",
				len(report.Jobs), report.Done, report.Failed, report.Skipped)
			return nil
		},
	}
}
