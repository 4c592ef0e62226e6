// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
)

// ParseResult is the outcome of a successful ParseAndDecode.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T

	// Unified is the schema-unified CUE value.
	Unified cue.Value
}

// ParseAndDecode compiles schema, unifies data with the definition found at
// schemaPath (for example "#Config"), validates the result and decodes it
// into T. Errors carry the offending field path.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)

	var validateOpts []cue.Option
	if options.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FormatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

// Marshal renders v as formatted CUE source. Struct fields are named after
// their json tags.
func Marshal(v any) ([]byte, error) {
	value := cuecontext.New().Encode(v)
	if value.Err() != nil {
		return nil, fmt.Errorf("encode cue value: %w", value.Err())
	}

	out, err := format.Node(value.Syntax(cue.Final(), cue.Concrete(true)))
	if err != nil {
		return nil, fmt.Errorf("format cue value: %w", err)
	}
	return append(out, '\n'), nil
}
