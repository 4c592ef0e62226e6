// SPDX-License-Identifier: MPL-2.0

// Package mavenrepotest serves an in-memory Maven repository over httptest
// for resolver, fetch and launcher tests. It counts requests per path and can
// corrupt checksums, hide content lengths, or hold downloads until released.
//
// This package is separate from testutil so it can be imported by the maven
// package's own tests without an import cycle; it therefore computes the
// repository layout itself.
//
// # Usage
//
//	repo := mavenrepotest.New(t)
//	repo.AddArtifact(mavenrepotest.Artifact{Group: "org.example", Artifact: "hello", Version: "1.0.0"})
//	repo.AddMetadata("org.example", "hello", "1.0.0")
//	client := maven.NewClient(maven.WithBaseURL(repo.URL))
package mavenrepotest
