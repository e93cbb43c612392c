package main

import (
	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dirscout",
		Short:         "Find, rank and attach project directories",
		Long:          "dirscout discovers directories with an external file walker, ranks them with a fuzzy matcher, and attaches the chosen ones to your workspace.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAddCmd(),
		newOpenCmd(),
		newCacheCmd(),
		newSettingsCmd(),
		newDoctorCmd(),
	)
	return root
}

// searchFlags holds the per-command parameter overrides. They reach
// the orchestrator as a loosely-typed map so unset flags leave the
// settings snapshot untouched.
type searchFlags struct {
	hidden   bool
	noFuzzy  bool
	noIgnore bool
	depth    int
	exclude  []string
	query    string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.hidden, "hidden", false, "include hidden entries")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "rank results against this query before the picker opens")
	cmd.Flags().BoolVar(&f.noFuzzy, "no-fuzzy", false, "disable fuzzy ranking")
	cmd.Flags().BoolVar(&f.noIgnore, "no-ignore", false, "do not respect ignore files")
	cmd.Flags().IntVar(&f.depth, "depth", 0, "maximum search depth (0 = unlimited)")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
}

func (f *searchFlags) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	if cmd.Flags().Changed("hidden") {
		out["include_hidden"] = f.hidden
	}
	if cmd.Flags().Changed("no-fuzzy") {
		out["enable_fuzzy"] = !f.noFuzzy
	}
	if cmd.Flags().Changed("no-ignore") {
		out["respect_ignore_files"] = !f.noIgnore
	}
	if cmd.Flags().Changed("depth") {
		out["max_depth"] = f.depth
	}
	if cmd.Flags().Changed("exclude") {
		out["exclude_patterns"] = f.exclude
	}
	return out
}
