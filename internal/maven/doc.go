// SPDX-License-Identifier: MPL-2.0

// Package maven speaks the Maven repository protocol: it computes repository
// layout paths, downloads maven-metadata.xml, POMs, jars and their SHA-1
// sidecars, orders versions, evaluates version ranges and builds the
// effective dependency model of a POM (parent inheritance, property
// interpolation, dependency management and imported BOMs).
//
// The package is organized by concern:
//   - client.go: HTTP client with scheme rewriting, timeouts and error mapping
//   - layout.go: repository-relative paths for metadata, POMs and jars
//   - metadata.go: maven-metadata.xml decoding and newest-version selection
//   - pom.go, model.go: POM decoding and effective model construction
//   - version.go: version ordering and range matching
//   - checksum.go: SHA-1 sidecar parsing and verification
package maven
