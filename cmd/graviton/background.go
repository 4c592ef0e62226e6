// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/graviton-app/graviton/internal/fetch"
	"github.com/graviton-app/graviton/internal/selfupdate"
)

// Set by the installed launcher script; development builds run without them.
const (
	envPath    = "GRAVITON_PATH"
	envVersion = "GRAVITON_VERSION"
)

// updateState describes the running installation for the update check.
func (a *App) updateState(s *session, lf *launchFlags) selfupdate.State {
	url := lf.updateURL
	if url == "" {
		url = s.cfg.Update.URL
	}
	// A missing or unparsable version reads as a development build.
	installed, _ := strconv.Atoi(a.getenv(envVersion))
	return selfupdate.State{
		CachePath:        s.history.Root(),
		InstalledVersion: installed,
		InstalledPath:    a.getenv(envPath),
		UpdateServerURI:  url,
	}
}

// backgroundUpdate checks for a newer graviton build and stages it. The
// check shares the session's history manager so a Clear in this process
// invalidates its writes. Failures go to logger only.
func (a *App) backgroundUpdate(ctx context.Context, s *session, lf *launchFlags, logger *slog.Logger) {
	scheduler := selfupdate.New(
		selfupdate.WithLogger(logger),
		selfupdate.WithRepository(s.client),
		selfupdate.WithDescriptorClient(selfupdate.NewDescriptorClient(
			selfupdate.WithUserAgent(s.cfg.Repository.UserAgent),
		)),
		selfupdate.WithHistory(s.history),
		selfupdate.WithFetchOptions(fetch.WithMaxParallel(s.cfg.Repository.MaxParallelDownloads)),
	)
	scheduler.CheckAndApply(ctx, a.updateState(s, lf))
}

// startupUpdateLogger is the logger for the check that runs alongside a
// launch. It shares stderr with the application, so it stays silent unless
// the run is verbose.
func startupUpdateLogger(s *session) *slog.Logger {
	if s.verbose {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}
