package main

import (
	"fmt"
	"os"
	"os/exec"

	"dirscout/internal/discover"
	"dirscout/internal/ui/picker"
	"dirscout/internal/workspace"

	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	flags := &searchFlags{}
	var newWindow bool

	cmd := &cobra.Command{
		Use:   "open [root...]",
		Short: "Find a directory and open it",
		Long:  "Prints the chosen directory for shell integration, or launches the configured editor on it with --new-window. Choosing a workspace file replaces the configured workspace definition.",
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

			chosen, err := picker.Pick(candidates, "Open directory", false)
			if err != nil {
				return err
			}
			if len(chosen) == 0 {
				return nil
			}
			target := chosen[0]

			if target.Kind == discover.KindWorkspaceFile {
				ws := workspace.NewFile(workspaceFilePath(a))
				chosenWs := workspace.NewFile(target.Path)
				def, err := chosenWs.Load()
				if err != nil {
					return err
				}
				dirs := make([]string, 0, len(def.Folders))
				for _, folder := range def.Folders {
					dirs = append(dirs, folder.Path)
				}
				if err := ws.Replace(dirs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workspace replaced from %s\n", target.Path)
				return nil
			}

			if newWindow {
				return launchEditor(a, target.Path)
			}
			// Plain open prints the path for shell `cd` integration.
			fmt.Fprintln(cmd.OutOrStdout(), target.Path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&newWindow, "new-window", false, "open in a new editor window")
	return cmd
}

func launchEditor(a *app, dir string) error {
	command := append(append([]string{}, a.settings.Editor.Command...), dir)
	c := exec.Command(command[0], command[1:]...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to launch editor %s: %w", command[0], err)
	}
	// The editor outlives us; don't wait.
	return c.Process.Release()
}
