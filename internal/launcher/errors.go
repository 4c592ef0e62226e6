// SPDX-License-Identifier: MPL-2.0

package launcher

import "fmt"

// StartError reports a launch that failed before the application ran.
type StartError struct {
	// Stage is the state the launch was in when it failed.
	Stage     State
	RootCause error
}

// Error implements the error interface.
func (e *StartError) Error() string {
	return fmt.Sprintf("start failed while %s: %v", e.Stage, e.RootCause)
}

// Unwrap returns the root cause.
func (e *StartError) Unwrap() error { return e.RootCause }
