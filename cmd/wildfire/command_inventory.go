package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/subashpoudel19/wildfire/core/catalog"
)

func newInventoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "List discovered fires and their input completeness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cat := catalog.NewCatalog(cfg.RootFolder, cfg.SeverityFolder)
			fires, err := cat.Inventory(cfg.Years)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIRE\tYEAR\tSIZE (MB)\tPERIMETER\tSEVERITY")
			ready := 0
			for _, fire := range fires {
				if fire.PerimeterPresent && fire.SeverityPresent {
					ready++
				}
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%s\t%s\n",
					fire.Name, fire.Year, fire.InputSizeMB(),
					yesNo(fire.PerimeterPresent), yesNo(fire.SeverityPresent))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d fires, %d with complete inputs\n", len(fires), ready)
			return nil
		},
	}
}

func yesNo(present bool) string {
	if present {
		return "yes"
	}
	return "MISSING"
}
