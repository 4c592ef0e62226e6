// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/graviton-app/graviton/internal/container"
	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/issue"
	"github.com/graviton-app/graviton/internal/launcher"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/runtime"
	"github.com/graviton-app/graviton/pkg/coordinate"
)

const (
	startFailedHeadline = "Start failed"
	notLocatedDetail    = "Could not locate the requested application"
	malformedMessage    = "Sorry, could not understand that coordinate. Use groupId:artifactId syntax."
)

// issueBySentinel maps error sentinels to catalog entries, most specific first.
var issueBySentinel = []struct {
	err error
	id  issue.Id
}{
	{coordinate.ErrMalformedCoordinate, issue.MalformedCoordinateId},
	{maven.ErrMetadataNotFound, issue.UnknownPackageId},
	{maven.ErrArtifactNotFound, issue.ArtifactNotFoundId},
	{maven.ErrChecksumMismatch, issue.ChecksumMismatchId},
	{history.ErrCacheCorruption, issue.CacheCorruptionId},
	{runtime.ErrJavaNotFound, issue.JavaNotFoundId},
	{runtime.ErrNoMainClass, issue.NoMainClassId},
	{container.ErrEngineNotAvailable, issue.ContainerEngineNotFoundId},
	{fs.ErrPermission, issue.PermissionDeniedId},
	{maven.ErrNetwork, issue.NetworkUnavailableId},
}

// issueFor returns the catalog entry explaining err.
func issueFor(err error) (*issue.Issue, bool) {
	if is, ok := issue.IssueOf(err); ok {
		return is, true
	}
	if maven.IsOfflineUncached(err) {
		return issue.Get(issue.OfflineUncachedId), true
	}
	for _, m := range issueBySentinel {
		if errors.Is(err, m.err) {
			return issue.Get(m.id), true
		}
	}
	return nil, false
}

// launchMessage is the one-line description of a failed launch.
func launchMessage(err error) string {
	var nf *maven.NotFoundError
	switch {
	case errors.As(err, &nf) && errors.Is(nf.Kind, maven.ErrMetadataNotFound):
		return fmt.Sprintf("Sorry, that package is unknown. Check for typos? (%s)", nf.What)
	case errors.Is(err, coordinate.ErrMalformedCoordinate):
		return malformedMessage
	}
	var se *launcher.StartError
	if errors.As(err, &se) && se.RootCause != nil {
		return se.RootCause.Error()
	}
	return err.Error()
}

// reportLaunchError tells the user why an application did not start.
// Interactive output leads with a headline; verbose output adds the full
// error and the matching troubleshooting page.
func (a *App) reportLaunchError(err error, interactive, verbose bool) {
	if interactive {
		detail := launchMessage(err)
		if errors.Is(err, maven.ErrArtifactNotFound) {
			detail = notLocatedDetail
		}
		fmt.Fprintln(a.stderr, ErrorStyle.Render(startFailedHeadline))
		fmt.Fprintln(a.stderr, detail)
	} else {
		fmt.Fprintln(a.stderr, launchMessage(err))
	}
	if verbose {
		fmt.Fprintln(a.stderr, VerboseStyle.Render(err.Error()))
		a.renderIssue(err)
	}
}

// reportError prints a non-launch failure such as a broken config file.
func (a *App) reportError(err error, verbose bool) {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	if verbose {
		a.renderIssue(err)
	}
}

// renderIssue prints the troubleshooting page for err, if there is one.
func (a *App) renderIssue(err error) {
	is, ok := issueFor(err)
	if !ok {
		return
	}
	rendered, renderErr := is.Render("dark")
	if renderErr != nil {
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
