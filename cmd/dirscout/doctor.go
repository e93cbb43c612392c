package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dirscout/internal/discover"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and cache health",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.close()

			report := buildReport(cmd, a)

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				// Plain markdown still reads fine.
				fmt.Fprint(cmd.OutOrStdout(), report)
				return nil
			}
			rendered, err := renderer.Render(report)
			if err != nil {
				fmt.Fprint(cmd.OutOrStdout(), report)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}

func buildReport(cmd *cobra.Command, a *app) string {
	var b strings.Builder
	b.WriteString("# dirscout doctor\n\n## External tools\n\n")

	ctx := cmd.Context()
	walker := a.settings.Search.WalkerPath
	writeToolStatus(ctx, &b, a, "walker", discover.WalkerIdentityPrefix, walker, "fd")
	ranker := a.settings.Search.RankerPath
	writeToolStatus(ctx, &b, a, "ranker", discover.RankerIdentityPrefix, ranker, "")

	b.WriteString("\n## Cache\n\n")
	cacheDir, err := a.settings.CacheDir()
	if err != nil {
		b.WriteString("- cache directory: unavailable\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("- directory: `%s`\n", cacheDir))

	entries, err := os.ReadDir(filepath.Join(cacheDir, "results"))
	if err != nil {
		b.WriteString("- file tier: empty\n")
	} else {
		count := 0
		var total int64
		for _, e := range entries {
			if filepath.Ext(e.Name()) != ".json" {
				continue
			}
			count++
			if info, err := e.Info(); err == nil {
				total += info.Size()
			}
		}
		b.WriteString(fmt.Sprintf("- file tier: %d entries, %d KiB\n", count, total/1024))
	}
	if a.kv == nil {
		b.WriteString("- kv tier: **unavailable**\n")
	} else {
		b.WriteString("- kv tier: open\n")
	}
	return b.String()
}

func writeToolStatus(ctx context.Context, b *strings.Builder, a *app, name, identityPrefix, path, expect string) {
	if path == "auto" {
		b.WriteString(fmt.Sprintf("- %s: auto-discovery enabled\n", name))
		return
	}
	probePath, err := a.probeFresh(ctx, identityPrefix+path, path, expect)
	if err != nil {
		b.WriteString(fmt.Sprintf("- %s: **missing** (`%s`)\n", name, path))
		return
	}
	b.WriteString(fmt.Sprintf("- %s: ok (`%s`)\n", name, probePath))
}
