// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the graviton command line.
//
// The root command takes a Maven coordinate followed by the arguments of the
// application; flag parsing stops at the coordinate so the application's own
// flags pass through untouched:
//
//	graviton [flags] <groupId:artifactId[:version]> [args...]
//
// Subcommands manage the download cache (cache), the configuration file
// (config) and report the build (version).
package cmd
