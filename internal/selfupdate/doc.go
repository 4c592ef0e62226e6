// SPDX-License-Identifier: MPL-2.0

// Package selfupdate keeps the shell itself current. A Scheduler reads a
// TOML update descriptor, and when it names a newer build, fetches that
// build through the regular Maven fetch path and hands it to an Installer.
//
// The package is organized into four concerns:
//   - descriptor.go: descriptor client and validation
//   - checksum.go: optional SHA256 verification of the fetched root jar
//   - install.go: Installer and the default StagingInstaller
//   - scheduler.go: Scheduler composing the above for unattended runs
package selfupdate
