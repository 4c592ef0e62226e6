// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"strings"

	"github.com/graviton-app/graviton/pkg/coordinate"
)

const (
	// MetadataFile is the name of the per-package version index.
	MetadataFile = "maven-metadata.xml"

	// ExtJar and ExtPOM are the file extensions of published modules.
	ExtJar = "jar"
	ExtPOM = "pom"
)

// Artifact identifies one repository file of a module version.
type Artifact struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	// Extension is "jar" or "pom". Empty means "jar".
	Extension string
}

// ArtifactOf returns the jar of a pinned coordinate.
func ArtifactOf(c coordinate.Coordinate) Artifact {
	return Artifact{Group: c.Group, Artifact: c.Artifact, Version: c.Version, Extension: ExtJar}
}

// POM returns the POM of the same module version.
func (a Artifact) POM() Artifact {
	return Artifact{Group: a.Group, Artifact: a.Artifact, Version: a.Version, Extension: ExtPOM}
}

// Coordinate drops the classifier and extension.
func (a Artifact) Coordinate() coordinate.Coordinate {
	return coordinate.Coordinate{Group: a.Group, Artifact: a.Artifact, Version: a.Version}
}

// ID is the identity used to collapse duplicates: group:artifact[:classifier]:extension:version.
func (a Artifact) ID() string {
	parts := []string{a.Group, a.Artifact}
	if a.Classifier != "" {
		parts = append(parts, a.Classifier)
	}
	return strings.Join(append(parts, a.ext(), a.Version), ":")
}

// FileName is the published file name, for example "hello-1.0.0.jar".
func (a Artifact) FileName() string {
	name := a.Artifact + "-" + a.Version
	if a.Classifier != "" {
		name += "-" + a.Classifier
	}
	return name + "." + a.ext()
}

// Path is the slash-separated repository path of the file.
func (a Artifact) Path() string {
	return VersionDir(a.Group, a.Artifact, a.Version) + "/" + a.FileName()
}

// String renders the artifact as group:artifact:version with any classifier appended.
func (a Artifact) String() string {
	s := a.Group + ":" + a.Artifact + ":" + a.Version
	if a.Classifier != "" {
		s += ":" + a.Classifier
	}
	return s
}

func (a Artifact) ext() string {
	if a.Extension == "" {
		return ExtJar
	}
	return a.Extension
}

// GroupDir converts a dotted group into its repository directory.
func GroupDir(group string) string {
	return strings.ReplaceAll(group, ".", "/")
}

// VersionDir is the directory holding the files of one module version.
func VersionDir(group, artifact, version string) string {
	return GroupDir(group) + "/" + artifact + "/" + version
}

// MetadataPath is the repository path of maven-metadata.xml for a package.
func MetadataPath(group, artifact string) string {
	return GroupDir(group) + "/" + artifact + "/" + MetadataFile
}

// ChecksumPath is the path of the SHA-1 sidecar for path.
func ChecksumPath(path string) string {
	return path + ".sha1"
}
