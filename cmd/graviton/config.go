// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graviton-app/graviton/internal/config"
)

// newConfigCommand creates the `graviton config` command tree.
func newConfigCommand(app *App, gf *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage graviton configuration",
		Long: `Manage graviton configuration.

Configuration is stored in:
  - Linux: ~/.config/graviton/config.cue
  - macOS: ~/Library/Application Support/graviton/config.cue
  - Windows: %APPDATA%\graviton\config.cue

Every value can be overridden with a GRAVITON_ environment variable named
after its key, e.g. GRAVITON_REPOSITORY_URL or GRAVITON_RUNTIME_KIND.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.settle(app.showConfig(cmd, gf))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig(cmd)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir(app.dirs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config directory: %s\n", cfgDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", config.ConfigFilePath(cfgDir))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.loadConfig(cmd.Context(), gf)
			if err != nil {
				app.reportError(err, gf.verbose)
				return app.settle(&ExitError{Code: 1})
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(loaded.Config))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(cmd *cobra.Command, gf *globalFlags) error {
	loaded, err := a.loadConfig(cmd.Context(), gf)
	if err != nil {
		a.reportError(err, true)
		return &ExitError{Code: 1}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	if loaded.Path != "" {
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), loaded.Path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	cachePath, err := a.cachePath(loaded.Config, gf)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", CmdStyle.Render("Cache"), cachePath)

	cfg := loaded.Config
	section(out, "repository")
	value(out, "url", cfg.Repository.URL)
	value(out, "timeout", cfg.Repository.Timeout)
	value(out, "artifact_timeout", cfg.Repository.ArtifactTimeout)
	value(out, "max_parallel_downloads", cfg.Repository.MaxParallelDownloads)
	value(out, "user_agent", cfg.Repository.UserAgent)

	section(out, "history")
	value(out, "freshness_window", cfg.History.FreshnessWindow)

	section(out, "update")
	value(out, "url", orNone(cfg.Update.URL, "(disabled)"))

	section(out, "runtime")
	value(out, "kind", cfg.Runtime.Kind)
	value(out, "java_home", orNone(cfg.Runtime.JavaHome, "(from PATH)"))
	value(out, "jvm_args", orNone(strings.Join(cfg.Runtime.JVMArgs, " "), "(none)"))
	value(out, "container.engine", orNone(string(cfg.Runtime.Container.Engine), "(auto)"))
	value(out, "container.image", cfg.Runtime.Container.Image)

	section(out, "ui")
	value(out, "verbose", cfg.UI.Verbose)
	value(out, "plain", cfg.UI.Plain)
	value(out, "default_coordinate", orNone(cfg.UI.DefaultCoordinate, "(none)"))

	return nil
}

func section(out io.Writer, name string) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", CmdStyle.Render(name))
}

func value(out io.Writer, key string, v any) {
	fmt.Fprintf(out, "  %s: %s\n", key, SuccessStyle.Render(fmt.Sprint(v)))
}

func orNone(s, placeholder string) string {
	if s == "" {
		return SubtitleStyle.Render(placeholder)
	}
	return s
}

func (a *App) initConfig(cmd *cobra.Command) error {
	cfgDir, err := config.ConfigDir(a.dirs)
	if err != nil {
		return err
	}

	path, created, err := config.CreateDefaultConfig(cfgDir)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	if !created {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
