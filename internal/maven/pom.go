// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Dependency scopes.
const (
	ScopeCompile  = "compile"
	ScopeRuntime  = "runtime"
	ScopeProvided = "provided"
	ScopeTest     = "test"
	ScopeSystem   = "system"
	ScopeImport   = "import"
)

type (
	// Project is the subset of a POM that dependency resolution needs.
	Project struct {
		XMLName              xml.Name        `xml:"project"`
		Parent               *ParentRef      `xml:"parent"`
		GroupID              string          `xml:"groupId"`
		ArtifactID           string          `xml:"artifactId"`
		Version              string          `xml:"version"`
		Packaging            string          `xml:"packaging"`
		Properties           Properties      `xml:"properties"`
		DependencyManagement DependencyGroup `xml:"dependencyManagement"`
		Dependencies         []Dependency    `xml:"dependencies>dependency"`
	}

	// ParentRef points at the parent POM.
	ParentRef struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	}

	// DependencyGroup wraps <dependencyManagement><dependencies>.
	DependencyGroup struct {
		Dependencies []Dependency `xml:"dependencies>dependency"`
	}

	// Dependency is one <dependency> element.
	Dependency struct {
		GroupID    string      `xml:"groupId"`
		ArtifactID string      `xml:"artifactId"`
		Version    string      `xml:"version"`
		Type       string      `xml:"type"`
		Classifier string      `xml:"classifier"`
		Scope      string      `xml:"scope"`
		Optional   string      `xml:"optional"`
		Exclusions []Exclusion `xml:"exclusions>exclusion"`
	}

	// Exclusion removes a group:artifact from a dependency's subtree.
	// Either field may be "*".
	Exclusion struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
	}

	// Properties holds the free-form <properties> element.
	Properties map[string]string
)

// ParsePOM decodes a POM document.
func ParsePOM(data []byte) (*Project, error) {
	var p Project
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding pom: %w", err)
	}
	return &p, nil
}

// UnmarshalXML collects each child element as a name/value pair.
func (p *Properties) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	props := make(Properties)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			props[t.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			*p = props
			return nil
		}
	}
}

// Key is the management key of a dependency: group:artifact:type[:classifier].
func (d Dependency) Key() string {
	key := d.GroupID + ":" + d.ArtifactID + ":" + d.TypeOrDefault()
	if d.Classifier != "" {
		key += ":" + d.Classifier
	}
	return key
}

// TypeOrDefault returns the dependency type, "jar" when unset.
func (d Dependency) TypeOrDefault() string {
	if d.Type == "" {
		return ExtJar
	}
	return d.Type
}

// ScopeOrDefault returns the dependency scope, "compile" when unset.
func (d Dependency) ScopeOrDefault() string {
	if d.Scope == "" {
		return ScopeCompile
	}
	return d.Scope
}

// IsOptional reports whether <optional> is true.
func (d Dependency) IsOptional() bool {
	return strings.EqualFold(strings.TrimSpace(d.Optional), "true")
}

// Excludes reports whether the exclusion matches group:artifact.
func (e Exclusion) Excludes(group, artifact string) bool {
	return (e.GroupID == "*" || e.GroupID == group) && (e.ArtifactID == "*" || e.ArtifactID == artifact)
}
