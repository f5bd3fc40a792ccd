package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"castpress/internal/artifact"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var episodeFlag string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the artifacts in an episode working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if episodeFlag == "" {
				return listEpisodes(out, cfg.Paths.LibraryDir)
			}

			workdir := filepath.Join(cfg.Paths.LibraryDir, episodeFlag)
			inv, err := artifact.Scan(workdir)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(out, inv.All())
			}

			rows := make([][]string, 0)
			for _, desc := range inv.All() {
				name, nameErr := desc.FileName()
				if nameErr != nil {
					continue
				}
				size := "-"
				if info, statErr := os.Stat(filepath.Join(workdir, name)); statErr == nil {
					size = fmt.Sprintf("%d", info.Size())
				}
				rows = append(rows, []string{name, string(desc.Kind), desc.Track, desc.Model, size})
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

			fmt.Fprintf(out, "Episode %s (%s)\n", episodeFlag, workdir)
			fmt.Fprintln(out, renderTable([]string{"FILE", "KIND", "TRACK", "MODEL", "BYTES"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&episodeFlag, "episode", "e", "", "Episode key (omit to list all episodes)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit artifact descriptors as JSON")
	return cmd
}

func listEpisodes(out io.Writer, libraryDir string) error {
	entries, err := os.ReadDir(libraryDir)
	if err != nil {
		return fmt.Errorf("read library %q: %w", libraryDir, err)
	}

	rows := make([][]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		inv, scanErr := artifact.Scan(filepath.Join(libraryDir, entry.Name()))
		if scanErr != nil {
			continue
		}
		rows = append(rows, []string{entry.Name(), fmt.Sprintf("%d", len(inv.All()))})
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No episodes in the library yet.")
		return nil
	}
	fmt.Fprintln(out, renderTable([]string{"EPISODE", "ARTIFACTS"}, rows,
		[]columnAlignment{alignLeft, alignRight}))
	return nil
}
