package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"castpress/internal/episode"
	"castpress/internal/lineage"
	"castpress/internal/pipeline"
	"castpress/internal/steps"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var showFlag string
	var titleFlag string
	var dateFlag string
	var sourceFlag string
	var forceSteps []string
	var forceAll bool
	var noHistory bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one episode through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			ep, err := parseEpisode(showFlag, titleFlag, dateFlag, sourceFlag)
			if err != nil {
				return err
			}

			force, err := parseForce(forceSteps, forceAll)
			if err != nil {
				return err
			}

			workdir := ep.Workdir(cfg.Paths.LibraryDir)
			if err := os.MkdirAll(workdir, 0o755); err != nil {
				return fmt.Errorf("create workdir %q: %w", workdir, err)
			}
			lock := flock.New(filepath.Join(workdir, ".castpress.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire episode lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("episode %s is already being processed", ep.Key())
			}
			defer lock.Unlock()

			opts := []pipeline.Option{}
			if !noHistory {
				path, pathErr := ctx.lineagePath()
				if pathErr != nil {
					return pathErr
				}
				ledger, openErr := lineage.Open(path)
				if openErr != nil {
					return fmt.Errorf("open lineage ledger: %w", openErr)
				}
				defer ledger.Close()
				opts = append(opts, pipeline.WithLedger(ledger))
			}

			orch := pipeline.New(cfg, logger, opts...)
			result, runErr := orch.Run(cmd.Context(), ep, pipeline.RunOptions{Force: force})

			out := cmd.OutOrStdout()
			if jsonOut {
				if printErr := printJSON(out, result); printErr != nil {
					return printErr
				}
			} else {
				fmt.Fprintln(out, renderRunResult(result))
			}
			if runErr != nil {
				return fmt.Errorf("run %s: %w", ep.Key(), runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&showFlag, "show", "", "Show name (required)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Episode title")
	cmd.Flags().StringVar(&dateFlag, "date", "", "Publish date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Audio source path or URL (required)")
	cmd.Flags().StringSliceVar(&forceSteps, "force", nil, "Re-run the named steps even when their artifacts exist")
	cmd.Flags().BoolVar(&forceAll, "force-all", false, "Re-run every step")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip lineage ledger recording")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run result as JSON")
	_ = cmd.MarkFlagRequired("show")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func parseEpisode(show, title, date, source string) (episode.Episode, error) {
	publishDate, err := episode.ParseDate(date)
	if err != nil {
		return episode.Episode{}, err
	}
	ep := episode.Episode{
		Show:        show,
		Title:       title,
		PublishDate: publishDate,
		AudioSource: source,
	}
	if err := ep.Validate(); err != nil {
		return episode.Episode{}, err
	}
	return ep, nil
}

func parseForce(names []string, all bool) (map[string]bool, error) {
	force := make(map[string]bool)
	if all {
		for _, name := range steps.Order {
			force[name] = true
		}
		return force, nil
	}
	for _, name := range names {
		if !steps.Known(name) {
			return nil, fmt.Errorf("unknown step %q", name)
		}
		force[name] = true
	}
	return force, nil
}

func renderRunResult(result *pipeline.RunResult) string {
	rows := make([][]string, 0, len(result.Steps))
	for _, step := range result.Steps {
		detail := ""
		if step.Error != "" {
			detail = step.Error
		}
		rows = append(rows, []string{
			step.Step,
			string(step.Outcome),
			formatDuration(step.Duration),
			detail,
		})
	}
	summary := fmt.Sprintf("Run %s: %s in %s", result.RunID, result.Status, formatDuration(result.Duration))
	for _, warning := range result.Warnings {
		summary += "\nwarning: " + warning
	}
	return renderTable([]string{"STEP", "OUTCOME", "DURATION", "DETAIL"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}) + "\n" + summary
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
