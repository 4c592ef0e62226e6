// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"errors"
	"fmt"
)

const (
	// ReasonOfflineUncached means offline mode was requested and nothing usable was cached.
	ReasonOfflineUncached NetworkReason = "offline and uncached"
	// ReasonTimeout means a request exceeded its configured timeout.
	ReasonTimeout NetworkReason = "timeout"
	// ReasonTransport means the request failed below HTTP (DNS, TLS, connection reset).
	ReasonTransport NetworkReason = "transport"
	// ReasonStatus means the repository answered with an unexpected HTTP status.
	ReasonStatus NetworkReason = "unexpected status"
)

var (
	// ErrMetadataNotFound means the repository has no such package, or the
	// package has no published versions.
	ErrMetadataNotFound = errors.New("package metadata not found")

	// ErrArtifactNotFound means a resolved artifact or POM is missing server-side.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrChecksumMismatch means downloaded content disagrees with its declared checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNetwork is wrapped by every NetworkError.
	ErrNetwork = errors.New("network error")
)

type (
	// NetworkReason classifies a NetworkError.
	NetworkReason string

	// NetworkError reports a failed or impossible network exchange.
	// It wraps ErrNetwork; errors.As exposes the reason and the cause.
	NetworkError struct {
		Reason NetworkReason
		URL    string
		Status int
		Err    error
	}

	// NotFoundError identifies what was missing. It wraps ErrMetadataNotFound
	// or ErrArtifactNotFound depending on Kind.
	NotFoundError struct {
		Kind error
		What string
		URL  string
	}
)

// Error implements the error interface.
func (e *NetworkError) Error() string {
	msg := "network error: " + string(e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" %d", e.Status)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrNetwork and the underlying cause.
func (e *NetworkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}

// IsOfflineUncached reports whether err is an offline-and-uncached NetworkError.
func IsOfflineUncached(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Reason == ReasonOfflineUncached
}

// OfflineUncached builds the error returned when offline mode cannot be served from cache.
func OfflineUncached(what string) error {
	return &NetworkError{Reason: ReasonOfflineUncached, Err: fmt.Errorf("%s is not cached", what)}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.What)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.What, e.URL)
}

// Unwrap returns the sentinel in Kind.
func (e *NotFoundError) Unwrap() error { return e.Kind }
