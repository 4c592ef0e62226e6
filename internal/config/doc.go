// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is read from config.cue in the platform configuration directory
// (~/.config/graviton on Linux, ~/Library/Application Support/graviton on macOS,
// %APPDATA%\graviton on Windows), validated against the embedded #Config schema,
// and overridden by GRAVITON_* environment variables. Missing keys keep the
// defaults from DefaultConfig.
package config
