package main

import (
	"fmt"

	"dirscout/internal/config"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty all cache tiers and tool availability records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.orch.ClearCache(); err != nil {
				return fmt.Errorf("cache clear incomplete: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	})
	return cmd
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Rewrite the config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Reset()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings reset: %s\n", path)
			return nil
		},
	})
	return cmd
}
