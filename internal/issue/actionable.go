// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError names the step that failed, the file or coordinate it
	// touched, and what the user can do next. Error() stays on one line;
	// Format adds the suggestions and, when verbose, every wrapped cause.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("open cache").
	//		WithResource(root).
	//		WithSuggestion("Run 'graviton cache clear'").
	//		WithIssue(issue.CacheCorruptionId).
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase: "open cache", "load configuration".
		Operation string
		Resource  string
		// Suggestions are printed one per line under the message.
		Suggestions []string
		// Issue links the catalog page shown by --verbose.
		Issue Id
		Cause error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation returns nil for a nil err.
func WrapWithOperation(err error, operation string) *ActionableError {
	return WrapWithContext(err, operation, "")
}

// WrapWithContext returns nil for a nil err.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// IssueOf returns the first catalog page linked by an ActionableError in
// err's chain.
func IssueOf(err error) (*Issue, bool) {
	var ae *ActionableError
	for errors.As(err, &ae) {
		if is := Get(ae.Issue); ae.Issue != 0 && is != nil {
			return is, true
		}
		err = ae.Cause
	}
	return nil, false
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders Error() followed by a bulleted suggestion list. Verbose
// output numbers each error found by unwrapping Cause.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if e.HasSuggestions() {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for i, err := 1, e.Cause; err != nil; i, err = i+1, errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", i, err)
		}
	}
	return b.String()
}

func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

func (c *ErrorContext) WithSuggestion(s string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s)
	return c
}

func (c *ErrorContext) WithSuggestions(s ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s...)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns nil until an operation is set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	return &ae
}

// BuildError is Build typed as error, with a nil interface in place of a
// nil pointer.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
