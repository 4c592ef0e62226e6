// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is the status an application exited with. Zero is success;
	// anything else is still a completed run, not a launch failure.
	ExitCode int

	// InvalidExitCodeError reports an ExitCode a POSIX process cannot return.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d outside 0-255", e.Value)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// IsValid reports whether c can be handed to os.Exit unchanged.
func (c ExitCode) IsValid() (bool, []error) {
	if c < 0 || c > 255 {
		return false, []error{&InvalidExitCodeError{Value: c}}
	}
	return true, nil
}

// IsSuccess reports whether the application exited cleanly.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsEngineFailure reports the codes docker and podman use for their own
// failures (125 to 127), as opposed to the application's.
func (c ExitCode) IsEngineFailure() bool { return c >= 125 && c <= 127 }

// String returns the decimal form of c.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
