package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"castpress/internal/lineage"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var episodeFlag string
	var runFlag string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded artifact lineage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if episodeFlag == "" && runFlag == "" {
				return fmt.Errorf("either --episode or --run is required")
			}

			path, err := ctx.lineagePath()
			if err != nil {
				return err
			}
			ledger, err := lineage.Open(path)
			if err != nil {
				return fmt.Errorf("open lineage ledger: %w", err)
			}
			defer ledger.Close()

			var records []lineage.Record
			if runFlag != "" {
				records, err = ledger.ByRun(cmd.Context(), runFlag)
			} else {
				records, err = ledger.ByEpisode(cmd.Context(), episodeFlag)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No lineage records found.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.CreatedAt.Format(time.RFC3339),
					shortRunID(record.RunID),
					record.Step,
					record.Path,
					record.Parent,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"WHEN", "RUN", "STEP", "ARTIFACT", "PARENT"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&episodeFlag, "episode", "e", "", "Episode key")
	cmd.Flags().StringVarP(&runFlag, "run", "r", "", "Run identifier")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit lineage records as JSON")
	return cmd
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
