// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by graviton's tests: a controllable
// clock for freshness-window tests and Must* filesystem/environment helpers
// that fail the test instead of returning errors.
//
// The in-memory Maven repository used by resolver, fetch and launcher tests
// lives in the mavenrepotest subpackage.
package testutil
