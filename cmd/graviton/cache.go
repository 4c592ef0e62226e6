// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/graviton-app/graviton/internal/issue"
)

// newCacheCommand creates the `graviton cache` command tree.
func newCacheCommand(app *App, gf *globalFlags) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the download cache",
		Long: `Inspect and clear the download cache.

The cache holds every downloaded jar in Maven repository layout together with
history.cue, which remembers which version each coordinate resolved to and
when it was last checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.settle(app.listCache(cmd, gf))
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached artifact and resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.settle(app.clearCache(cmd, gf))
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.settle(app.showCachePath(cmd, gf))
		},
	})

	return cacheCmd
}

func (a *App) listCache(cmd *cobra.Command, gf *globalFlags) error {
	s, err := a.openSession(cmd.Context(), gf, false)
	if err != nil {
		a.reportError(err, gf.verbose)
		return &ExitError{Code: 1}
	}

	out := cmd.OutOrStdout()
	entries := s.history.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("No cached applications"))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		state := "stale"
		if s.history.IsFresh(e) {
			state = "fresh"
		}
		rows = append(rows, []string{
			e.Key,
			e.ResolvedVersion,
			e.LastCheckedAt.Local().Format(time.DateTime),
			strconv.Itoa(len(e.ArtifactPaths)),
			state,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle.Padding(0, 1)
			}
			if col == 0 {
				return CmdStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("COORDINATE", "VERSION", "LAST CHECKED", "JARS", "STATE").
		Rows(rows...)

	fmt.Fprintln(out, t.Render())
	return nil
}

func (a *App) clearCache(cmd *cobra.Command, gf *globalFlags) error {
	s, err := a.openSession(cmd.Context(), gf, false)
	if err != nil {
		a.reportError(err, gf.verbose)
		return &ExitError{Code: 1}
	}
	if err := s.history.Clear(); err != nil {
		return issue.WrapWithOperation(err, "clear cache")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared cache at %s\n", SuccessStyle.Render("✓"), s.history.Root())
	return nil
}

func (a *App) showCachePath(cmd *cobra.Command, gf *globalFlags) error {
	loaded, err := a.loadConfig(cmd.Context(), gf)
	if err != nil {
		a.reportError(err, gf.verbose)
		return &ExitError{Code: 1}
	}
	path, err := a.cachePath(loaded.Config, gf)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
