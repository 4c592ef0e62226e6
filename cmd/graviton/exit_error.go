// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
// An ExitError without Err means the outcome was already reported to the user.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// settle records the code of a silent ExitError on the App and hides it from
// cobra, so fang does not print "exit status N" after the application's own
// output. Every other error passes through.
func (a *App) settle(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		a.exitCode = exitErr.Code
		return nil
	}
	return err
}
