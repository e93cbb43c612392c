package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dirscout/internal/discover"
	"dirscout/internal/tool/probe"
	"dirscout/internal/ui/picker"
	"dirscout/internal/workspace"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "add [root...]",
		Short: "Find directories and attach them to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.close()
			a.orch.Preload()

			candidates, err := a.orch.Candidates(cmd.Context(), args, flags.overrides(cmd))
			if err != nil {
				return reportSearchError(err)
			}
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No directories found.")
				return nil
			}
			if flags.query != "" {
				a.syncAdoptedRanker()
				candidates = a.ranker.ForQuery(cmd.Context(), candidates, flags.query)
			}

			chosen, err := picker.Pick(candidates, "Attach to workspace", true)
			if err != nil {
				return err
			}
			if len(chosen) == 0 {
				return nil
			}

			wsFile := workspace.NewFile(workspaceFilePath(a))
			dirs := make([]string, 0, len(chosen))
			for _, c := range chosen {
				if c.Kind == discover.KindDirectory {
					dirs = append(dirs, c.Path)
				}
			}
			added, err := wsFile.Attach(dirs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d folder(s) to %s\n", added, wsFile.Path())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func workspaceFilePath(a *app) string {
	if a.settings.Editor.WorkspaceFile != "" {
		return a.settings.Editor.WorkspaceFile
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, filepath.Base(cwd)+discover.WorkspaceFileExt)
}

// reportSearchError maps the error taxonomy onto the command surface:
// cancellation is silent, tool absence and walker failures produce one
// clear message.
func reportSearchError(err error) error {
	if discover.IsCancelled(err) {
		return nil
	}
	var unavailable *probe.ToolUnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Errorf("%s not found: install it or set its path in the config file", unavailable.Tool)
	}
	return err
}
