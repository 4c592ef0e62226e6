// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"
)

type (
	// Metadata is the decoded content of a package's maven-metadata.xml.
	Metadata struct {
		GroupID    string     `xml:"groupId"`
		ArtifactID string     `xml:"artifactId"`
		Versioning Versioning `xml:"versioning"`
	}

	// Versioning lists the published versions of a package.
	Versioning struct {
		Latest      string   `xml:"latest"`
		Release     string   `xml:"release"`
		Versions    []string `xml:"versions>version"`
		LastUpdated string   `xml:"lastUpdated"`
	}
)

// ParseMetadata decodes maven-metadata.xml.
func ParseMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&md); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", MetadataFile, err)
	}
	for i, v := range md.Versioning.Versions {
		md.Versioning.Versions[i] = strings.TrimSpace(v)
	}
	md.Versioning.Release = strings.TrimSpace(md.Versioning.Release)
	md.Versioning.Latest = strings.TrimSpace(md.Versioning.Latest)
	return &md, nil
}

// Versions returns every published version in ascending order without duplicates.
func (m *Metadata) Versions() []string {
	var all []string
	for _, v := range append(slices.Clone(m.Versioning.Versions), m.Versioning.Release, m.Versioning.Latest) {
		if v != "" && !slices.Contains(all, v) {
			all = append(all, v)
		}
	}
	slices.SortFunc(all, CompareVersions)
	return all
}

// Newest returns the newest released version: the declared release if
// present, else the highest listed version that is not a snapshot, else the
// highest version of any kind. ok is false when nothing is published.
func (m *Metadata) Newest() (version string, ok bool) {
	if m.Versioning.Release != "" {
		return m.Versioning.Release, true
	}
	all := m.Versions()
	for i := len(all) - 1; i >= 0; i-- {
		if !IsSnapshot(all[i]) {
			return all[i], true
		}
	}
	if len(all) > 0 {
		return all[len(all)-1], true
	}
	return "", false
}

// Highest returns the highest published version accepted by r.
func (m *Metadata) Highest(r VersionRange) (string, bool) {
	all := m.Versions()
	for i := len(all) - 1; i >= 0; i-- {
		if r.Contains(all[i]) {
			return all[i], true
		}
	}
	return "", false
}
