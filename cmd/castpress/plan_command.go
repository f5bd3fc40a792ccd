package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"castpress/internal/artifact"
	"castpress/internal/pipeline"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var showFlag string
	var titleFlag string
	var dateFlag string
	var sourceFlag string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the resolved step plan for an episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ep, err := parseEpisode(showFlag, titleFlag, dateFlag, sourceFlag)
			if err != nil {
				return err
			}

			workdir := ep.Workdir(cfg.Paths.LibraryDir)
			inv := &artifact.Inventory{}
			if _, statErr := os.Stat(workdir); statErr == nil {
				inv, err = artifact.Scan(workdir)
				if err != nil {
					return err
				}
			}

			rows := make([][]string, 0)
			for _, planned := range pipeline.PlanSteps(cfg) {
				disposition := "run"
				if pipeline.Satisfied(planned.Name, inv, cfg) {
					disposition = "skip (artifact present)"
				}
				mode := "required"
				if planned.Soft {
					mode = "soft"
				}
				rows = append(rows, []string{planned.Name, mode, disposition})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Episode %s (%s)\n", ep.Key(), workdir)
			fmt.Fprintln(out, renderTable([]string{"STEP", "MODE", "DISPOSITION"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().StringVar(&showFlag, "show", "", "Show name (required)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Episode title")
	cmd.Flags().StringVar(&dateFlag, "date", "", "Publish date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Audio source path or URL (required)")
	_ = cmd.MarkFlagRequired("show")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}
