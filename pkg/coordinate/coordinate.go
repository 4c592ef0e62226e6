// SPDX-License-Identifier: MPL-2.0

package coordinate

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Delimiter separates the fields of a coordinate string.
	Delimiter = ":"

	// Latest is the version sentinel meaning "resolve dynamically".
	Latest = "latest"
)

// ErrMalformedCoordinate is the sentinel error wrapped by MalformedError.
var ErrMalformedCoordinate = errors.New("malformed coordinate")

type (
	// Coordinate identifies a publishable package. It is a value type: once
	// parsed it is never mutated, derive new values with WithVersion.
	Coordinate struct {
		Group    string
		Artifact string
		// Version is empty or "latest" for dynamic coordinates.
		Version string
	}

	// MalformedError describes why a coordinate string was rejected.
	// It wraps ErrMalformedCoordinate for errors.Is() compatibility.
	MalformedError struct {
		Input  string
		Reason string
	}
)

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed coordinate %q: %s", e.Input, e.Reason)
}

// Unwrap returns ErrMalformedCoordinate so callers can use errors.Is.
func (e *MalformedError) Unwrap() error { return ErrMalformedCoordinate }

// Parse splits text on Delimiter into two or three fields. Surrounding
// whitespace is ignored; whitespace inside a field is not.
func Parse(text string) (Coordinate, error) {
	trimmed := strings.TrimSpace(text)
	fields := strings.Split(trimmed, Delimiter)

	switch {
	case trimmed == "":
		return Coordinate{}, &MalformedError{Input: text, Reason: "empty input"}
	case len(fields) < 2:
		return Coordinate{}, &MalformedError{Input: text, Reason: "expected groupId:artifactId[:version]"}
	case len(fields) > 3:
		return Coordinate{}, &MalformedError{Input: text, Reason: fmt.Sprintf("expected at most 3 fields, got %d", len(fields))}
	}

	for i, f := range fields {
		if f == "" {
			return Coordinate{}, &MalformedError{Input: text, Reason: fmt.Sprintf("field %d is empty", i+1)}
		}
	}

	c := Coordinate{Group: fields[0], Artifact: fields[1]}
	if len(fields) == 3 {
		c.Version = fields[2]
	}

	if ok, errs := c.IsValid(); !ok {
		return Coordinate{}, &MalformedError{Input: text, Reason: errors.Join(errs...).Error()}
	}
	return c, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(text string) Coordinate {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

// IsValid returns whether the coordinate satisfies the model invariants,
// and the list of violations if it does not.
func (c Coordinate) IsValid() (bool, []error) {
	var errs []error
	if c.Group == "" {
		errs = append(errs, errors.New("group must not be empty"))
	} else if strings.ContainsAny(c.Group, `/\`) {
		errs = append(errs, fmt.Errorf("group %q contains a path separator", c.Group))
	}
	if c.Artifact == "" {
		errs = append(errs, errors.New("artifact must not be empty"))
	} else if strings.ContainsAny(c.Artifact, `/\`) {
		errs = append(errs, fmt.Errorf("artifact %q contains a path separator", c.Artifact))
	}
	if strings.ContainsAny(c.Version, `/\`+Delimiter) {
		errs = append(errs, fmt.Errorf("version %q contains a reserved character", c.Version))
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// IsDynamic reports whether the version must be resolved from metadata.
func (c Coordinate) IsDynamic() bool {
	return c.Version == "" || strings.EqualFold(c.Version, Latest)
}

// WithVersion returns a copy of c pinned to version.
func (c Coordinate) WithVersion(version string) Coordinate {
	c.Version = version
	return c
}

// Unversioned returns the group:artifact pair without any version.
func (c Coordinate) Unversioned() Coordinate {
	c.Version = ""
	return c
}

// Key returns the history key for the coordinate: "group:artifact" for
// dynamic coordinates and "group:artifact:version" for pinned ones. Versions
// can never be empty when pinned, so the two key spaces never overlap.
func (c Coordinate) Key() string {
	if c.IsDynamic() {
		return c.Group + Delimiter + c.Artifact
	}
	return c.Group + Delimiter + c.Artifact + Delimiter + c.Version
}

// String renders the coordinate in its textual form.
func (c Coordinate) String() string {
	if c.Version == "" {
		return c.Group + Delimiter + c.Artifact
	}
	return c.Group + Delimiter + c.Artifact + Delimiter + c.Version
}
