// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE helpers shared by the config loader and the
// history index.
//
// Reading follows a fixed flow: compile the embedded schema, compile the
// document and unify it with the schema's root definition, then validate and
// decode into a Go struct:
//
//	//go:embed history_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[index](schema, data, "#History",
//	    cueutil.WithFilename("history.cue"))
//
// Writing goes the other way through Marshal, which renders a Go value as
// formatted CUE source.
package cueutil
