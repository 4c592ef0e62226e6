// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/graviton-app/graviton/internal/fetch"
	"github.com/graviton-app/graviton/internal/issue"
	"github.com/graviton-app/graviton/internal/launcher"
	"github.com/graviton-app/graviton/internal/progress"
	"github.com/graviton-app/graviton/internal/resolver"
	"github.com/graviton-app/graviton/internal/tui"
)

// runRoot handles `graviton [flags] <coordinate> [args...]`.
func (a *App) runRoot(cmd *cobra.Command, gf *globalFlags, lf *launchFlags, args []string) error {
	ctx := cmd.Context()

	s, err := a.openSession(ctx, gf, lf.backgroundUpdate)
	if err != nil {
		a.reportError(err, gf.verbose)
		return &ExitError{Code: 1}
	}

	if lf.backgroundUpdate {
		s.logger.Info("background update")
		a.backgroundUpdate(ctx, s, lf, s.logger)
		return nil
	}

	if a.getenv(envPath) != "" && a.getenv(envVersion) != "" && !lf.offline {
		s.logger.Debug("starting graviton", "version", a.getenv(envVersion), "path", a.getenv(envPath))
		go a.backgroundUpdate(ctx, s, lf, startupUpdateLogger(s))
	}

	if len(args) == 0 {
		if lf.clearCache {
			if err := s.history.Clear(); err != nil {
				return issue.WrapWithOperation(err, "clear cache")
			}
		}
		return a.printUsage(cmd, s, lf)
	}

	if lf.profileDownloads > 1 {
		return a.profileDownloads(ctx, s, lf, args[0])
	}

	return a.launch(ctx, s, lf, args[0], args[1:])
}

// launch resolves, fetches and starts text, then waits for the application.
// The application's exit code becomes graviton's.
func (a *App) launch(ctx context.Context, s *session, lf *launchFlags, text string, appArgs []string) error {
	interactive := a.interactive(s, lf)

	rt, err := a.newRuntime(ctx, s.cfg.Runtime, s.logger)
	if err != nil {
		a.reportLaunchError(err, interactive, s.verbose)
		return &ExitError{Code: 1}
	}

	la := launcher.New(s.resolver, s.fetcher, s.history, rt, launcher.WithLogger(s.logger))
	handle, err := la.Start(ctx, text, appArgs, launcher.Options{
		ClearCacheBeforeStart: lf.clearCache,
		Offline:               lf.offline,
		NoSSL:                 lf.noSSL,
		Refresh:               lf.refresh,
		Entry:                 lf.entry,
		Stdin:                 a.stdin,
		Stdout:                a.stdout,
		Stderr:                a.stderr,
	}, a.newSink(interactive))
	if err != nil {
		a.reportLaunchError(err, interactive, s.verbose)
		return &ExitError{Code: 1}
	}

	code, err := handle.Wait()
	if err != nil {
		return fmt.Errorf("%s: %w", text, err)
	}
	if ok, errs := code.IsValid(); !ok {
		s.logger.Warn("application exit code cannot be passed on", "launch", handle.ID, "error", errors.Join(errs...))
		return &ExitError{Code: 1}
	}
	if !code.IsSuccess() {
		return &ExitError{Code: int(code)}
	}
	return nil
}

// interactive reports whether progress gets the live terminal view.
func (a *App) interactive(s *session, lf *launchFlags) bool {
	return !lf.plain && !s.cfg.UI.Plain && a.isTerminal(a.stderr)
}

// newSink returns the progress sink for one fetch. Progress goes to stderr
// so the application's stdout stays clean.
func (a *App) newSink(interactive bool) progress.Sink {
	if interactive {
		return tui.NewProgressView(a.stderr)
	}
	return tui.NewTextBar(a.stderr)
}

// printUsage is shown when no coordinate was given.
func (a *App) printUsage(cmd *cobra.Command, s *session, lf *launchFlags) error {
	if err := cmd.Help(); err != nil {
		return err
	}
	suggested := lf.defaultCoordinate
	if suggested == "" {
		suggested = s.cfg.UI.DefaultCoordinate
	}
	if suggested != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTry: %s\n", CmdStyle.Render("graviton "+suggested))
	}
	return nil
}

// profileDownloads downloads text n times from an empty cache and reports
// the average duration.
func (a *App) profileDownloads(ctx context.Context, s *session, lf *launchFlags, text string) error {
	runs := lf.profileDownloads
	start := time.Now()
	for range runs {
		if err := s.history.Clear(); err != nil {
			return issue.WrapWithOperation(err, "clear cache")
		}
		resolved, err := s.resolver.Resolve(ctx, text, resolver.Options{
			Offline:      lf.offline,
			ForceRefresh: lf.refresh,
			UseSSL:       !lf.noSSL,
		})
		if err == nil {
			_, err = s.fetcher.Fetch(ctx, resolved, tui.NewTextBar(a.stderr), fetch.Options{
				UseSSL:  !lf.noSSL,
				Offline: lf.offline,
			})
		}
		if err != nil {
			a.reportLaunchError(err, false, s.verbose)
			return &ExitError{Code: 1}
		}
	}
	total := time.Since(start).Seconds()
	fmt.Fprintf(a.stdout, "Total runtime was %.1f seconds, for an average of %.2f seconds per run.\n", total, total/float64(runs))
	return nil
}
