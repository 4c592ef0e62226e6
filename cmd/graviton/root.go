// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/graviton-app/graviton/internal/selfupdate"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// launchFlags are the flags of the root command.
type launchFlags struct {
	clearCache        bool
	offline           bool
	noSSL             bool
	refresh           bool
	plain             bool
	entry             string
	defaultCoordinate string
	updateURL         string
	backgroundUpdate  bool
	profileDownloads  int
}

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	gf := &globalFlags{}
	lf := &launchFlags{}

	rootCmd := &cobra.Command{
		Use:   "graviton [flags] <groupId:artifactId[:version]> [args...]",
		Short: "Run any JVM application straight from a Maven repository",
		Long: TitleStyle.Render("graviton") + SubtitleStyle.Render(" - run JVM applications by their Maven coordinate") + `

graviton resolves a groupId:artifactId[:version] coordinate against a Maven
repository, downloads the application and its dependencies into a local cache,
and starts it. Without a version the newest release is used, re-checked at most
once a day.

Everything after the coordinate is passed to the application.

` + SubtitleStyle.Render("Examples:") + `
  graviton com.github.ricksbrown:cowsay -f tux Moo    Run the newest cowsay
  graviton com.github.ricksbrown:cowsay:1.1.0 Moo     Run a pinned version
  graviton --offline com.github.ricksbrown:cowsay     Run from the cache only
  graviton cache list                                 Show cached applications`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.settle(app.runRoot(cmd, gf, lf, args))
		},
	}
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	// Everything after the coordinate belongs to the application.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&gf.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/graviton/config.cue)")
	rootCmd.PersistentFlags().StringVar(&gf.cachePath, "cache-path", "", "override the cache directory")

	flags := rootCmd.Flags()
	flags.BoolVar(&lf.clearCache, "clear-cache", false, "clear the download cache before starting")
	flags.BoolVar(&lf.offline, "offline", false, "only use what is already in the cache")
	flags.BoolVar(&lf.noSSL, "no-ssl", false, "download over plain http")
	flags.BoolVarP(&lf.refresh, "refresh", "r", false, "check for a newer version even if one was found recently")
	flags.BoolVar(&lf.plain, "plain", false, "show a plain text progress bar instead of the interactive view")
	flags.StringVar(&lf.entry, "main", "", "main class to run instead of the jar manifest's Main-Class")
	flags.StringVar(&lf.defaultCoordinate, "default-coordinate", "", "coordinate suggested when none is given")

	flags.StringVar(&lf.updateURL, "update-url", "", "update descriptor URL (default "+selfupdate.DefaultUpdateURL+")")
	flags.BoolVar(&lf.backgroundUpdate, "background-update", false, "check for and stage a newer graviton build, then exit")
	flags.IntVar(&lf.profileDownloads, "profile-downloads", -1, "download the coordinate this many times from an empty cache and report timings")
	for _, name := range []string{"update-url", "background-update", "profile-downloads"} {
		_ = flags.MarkHidden(name)
	}

	rootCmd.AddCommand(
		newCacheCommand(app, gf),
		newConfigCommand(app, gf),
		newVersionCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs graviton with the process arguments and exits with its code.
// This is called by main.main().
func Execute() {
	os.Exit(Run(context.Background(), NewApp(Dependencies{}), os.Args[1:]))
}

// Run executes the command line args against app and returns the process
// exit code. A launched application's exit code becomes graviton's own.
func Run(ctx context.Context, app *App, args []string) int {
	rootCmd := newRootCommand(app)
	rootCmd.SetArgs(args)

	if err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return app.exitCode
}
