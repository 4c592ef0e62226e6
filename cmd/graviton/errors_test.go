// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/graviton-app/graviton/internal/history"
	"github.com/graviton-app/graviton/internal/issue"
	"github.com/graviton-app/graviton/internal/launcher"
	"github.com/graviton-app/graviton/internal/maven"
	"github.com/graviton-app/graviton/internal/runtime"
	"github.com/graviton-app/graviton/pkg/coordinate"
)

func mustMalformed(t *testing.T) error {
	t.Helper()
	_, err := coordinate.Parse("no-colon")
	if err == nil {
		t.Fatal("Parse accepted a coordinate without a colon")
	}
	return err
}

func TestLaunchMessage(t *testing.T) {
	t.Parallel()

	unknown := &maven.NotFoundError{Kind: maven.ErrMetadataNotFound, What: "com.example:nothere"}
	missingJar := &maven.NotFoundError{Kind: maven.ErrArtifactNotFound, What: "com/example/a/1/a-1.jar"}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unknown package",
			err:  &launcher.StartError{Stage: launcher.StateResolving, RootCause: unknown},
			want: "Sorry, that package is unknown. Check for typos? (com.example:nothere)",
		},
		{
			name: "malformed coordinate",
			err:  &launcher.StartError{Stage: launcher.StateResolving, RootCause: mustMalformed(t)},
			want: malformedMessage,
		},
		{
			name: "root cause of other start failures",
			err:  &launcher.StartError{Stage: launcher.StateFetching, RootCause: missingJar},
			want: missingJar.Error(),
		},
		{
			name: "errors outside a launch",
			err:  errors.New("engine exploded"),
			want: "engine exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := launchMessage(tt.err); got != tt.want {
				t.Errorf("launchMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIssueFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		want   issue.Id
		wantOK bool
	}{
		{"unknown package", &maven.NotFoundError{Kind: maven.ErrMetadataNotFound}, issue.UnknownPackageId, true},
		{"missing artifact", &maven.NotFoundError{Kind: maven.ErrArtifactNotFound}, issue.ArtifactNotFoundId, true},
		{"malformed", mustMalformed(t), issue.MalformedCoordinateId, true},
		{"checksum", &maven.ChecksumError{}, issue.ChecksumMismatchId, true},
		{"offline", maven.OfflineUncached("com.example:a"), issue.OfflineUncachedId, true},
		{"network", &maven.NetworkError{Reason: maven.ReasonTimeout}, issue.NetworkUnavailableId, true},
		{"corruption", fmt.Errorf("index: %w", history.ErrCacheCorruption), issue.CacheCorruptionId, true},
		{"no java", fmt.Errorf("%w in /opt/jdk", runtime.ErrJavaNotFound), issue.JavaNotFoundId, true},
		{"no main class", runtime.ErrNoMainClass, issue.NoMainClassId, true},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, issue.PermissionDeniedId, true},
		{
			name:   "linked issue wins",
			err:    issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).Wrap(fs.ErrPermission).BuildError(),
			want:   issue.ConfigLoadFailedId,
			wantOK: true,
		},
		{"unrelated", errors.New("something else"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := issueFor(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("issueFor() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Id() != tt.want {
				t.Errorf("issueFor() = %d, want %d", got.Id(), tt.want)
			}
		})
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	err := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource("/etc/graviton/config.cue").
		WithSuggestion("Check the file").
		Wrap(errors.New("bad syntax")).
		BuildError()

	got := formatErrorForDisplay(err, false)
	want := "failed to load configuration: /etc/graviton/config.cue: bad syntax\n\n  • Check the file"
	if got != want {
		t.Errorf("formatErrorForDisplay() = %q, want %q", got, want)
	}

	if got := formatErrorForDisplay(errors.New("plain"), true); got != "plain" {
		t.Errorf("formatErrorForDisplay(plain) = %q", got)
	}
}
