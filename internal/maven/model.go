// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
)

const (
	// maxParentDepth bounds parent chains and BOM import nesting.
	maxParentDepth = 32

	// maxInterpolationPasses bounds nested ${...} expansion.
	maxInterpolationPasses = 16
)

// ErrModelCycle is returned when parents or imported BOMs form a loop.
var ErrModelCycle = errors.New("pom inheritance cycle")

type (
	// POMLoader returns the POM of a module version.
	POMLoader interface {
		LoadPOM(ctx context.Context, group, artifact, version string) (*Project, error)
	}

	// POMLoaderFunc adapts a function to POMLoader.
	POMLoaderFunc func(ctx context.Context, group, artifact, version string) (*Project, error)

	// Model is the effective POM: inheritance applied, properties expanded,
	// managed versions and scopes filled in.
	Model struct {
		GroupID    string
		ArtifactID string
		Version    string
		Packaging  string
		Properties map[string]string
		// Managed maps Dependency.Key to the managed entry.
		Managed      map[string]Dependency
		Dependencies []Dependency
	}

	modelBuilder struct {
		loader POMLoader
		cache  map[string]*Model
	}
)

// LoadPOM calls f.
func (f POMLoaderFunc) LoadPOM(ctx context.Context, group, artifact, version string) (*Project, error) {
	return f(ctx, group, artifact, version)
}

// BuildModel loads the POM of group:artifact:version through loader and
// computes its effective model.
func BuildModel(ctx context.Context, loader POMLoader, group, artifact, version string) (*Model, error) {
	b := &modelBuilder{loader: loader, cache: make(map[string]*Model)}
	return b.build(ctx, group, artifact, version, nil)
}

func (b *modelBuilder) build(ctx context.Context, group, artifact, version string, visiting []string) (*Model, error) {
	id := group + ":" + artifact + ":" + version
	if m, ok := b.cache[id]; ok {
		return m, nil
	}
	for _, v := range visiting {
		if v == id {
			return nil, fmt.Errorf("%w: %s", ErrModelCycle, strings.Join(append(visiting, id), " -> "))
		}
	}
	if len(visiting) >= maxParentDepth {
		return nil, fmt.Errorf("%w: depth exceeds %d at %s", ErrModelCycle, maxParentDepth, id)
	}
	visiting = append(visiting, id)

	chain, err := b.lineage(ctx, group, artifact, version)
	if err != nil {
		return nil, err
	}

	m := &Model{
		GroupID:    group,
		ArtifactID: artifact,
		Version:    version,
		Properties: make(map[string]string),
		Managed:    make(map[string]Dependency),
	}

	// chain runs from the child up to the root ancestor; apply root first.
	var managed []Dependency
	deps := make(map[string]Dependency)
	var order []string
	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		maps.Copy(m.Properties, p.Properties)
		managed = append(managed, p.DependencyManagement.Dependencies...)
		for _, d := range p.Dependencies {
			if _, seen := deps[d.Key()]; !seen {
				order = append(order, d.Key())
			}
			deps[d.Key()] = d
		}
	}
	m.Packaging = strings.TrimSpace(chain[0].Packaging)
	if m.Packaging == "" {
		m.Packaging = ExtJar
	}

	child := chain[0]
	m.Properties["project.groupId"] = group
	m.Properties["project.artifactId"] = artifact
	m.Properties["project.version"] = version
	m.Properties["pom.groupId"] = group
	m.Properties["pom.artifactId"] = artifact
	m.Properties["pom.version"] = version
	m.Properties["groupId"] = group
	m.Properties["artifactId"] = artifact
	m.Properties["version"] = version
	m.Properties["project.packaging"] = m.Packaging
	if child.Parent != nil {
		m.Properties["project.parent.groupId"] = child.Parent.GroupID
		m.Properties["project.parent.artifactId"] = child.Parent.ArtifactID
		m.Properties["project.parent.version"] = child.Parent.Version
		m.Properties["parent.version"] = child.Parent.Version
	}

	// Later declarations override earlier ones; imports only fill gaps.
	var imports []Dependency
	for _, d := range managed {
		d = m.interpolateDependency(d)
		if d.Scope == ScopeImport && d.TypeOrDefault() == ExtPOM {
			imports = append(imports, d)
			continue
		}
		m.Managed[d.Key()] = d
	}
	for _, imp := range imports {
		bom, err := b.build(ctx, imp.GroupID, imp.ArtifactID, imp.Version, visiting)
		if err != nil {
			return nil, fmt.Errorf("importing %s:%s:%s into %s: %w", imp.GroupID, imp.ArtifactID, imp.Version, id, err)
		}
		for key, d := range bom.Managed {
			if _, ok := m.Managed[key]; !ok {
				m.Managed[key] = d
			}
		}
	}

	for _, key := range order {
		d := m.interpolateDependency(deps[key])
		if mgmt, ok := m.Managed[d.Key()]; ok {
			if d.Version == "" {
				d.Version = mgmt.Version
			}
			if d.Scope == "" {
				d.Scope = mgmt.Scope
			}
			if len(d.Exclusions) == 0 {
				d.Exclusions = mgmt.Exclusions
			}
			if d.Optional == "" {
				d.Optional = mgmt.Optional
			}
		}
		m.Dependencies = append(m.Dependencies, d)
	}

	b.cache[id] = m
	return m, nil
}

// lineage returns the POM of the module followed by its ancestors.
func (b *modelBuilder) lineage(ctx context.Context, group, artifact, version string) ([]*Project, error) {
	var chain []*Project
	seen := map[string]bool{}

	g, a, v := group, artifact, version
	for {
		id := g + ":" + a + ":" + v
		if seen[id] {
			return nil, fmt.Errorf("%w: parent %s of %s:%s:%s", ErrModelCycle, id, group, artifact, version)
		}
		if len(chain) >= maxParentDepth {
			return nil, fmt.Errorf("%w: parent chain of %s:%s:%s exceeds %d", ErrModelCycle, group, artifact, version, maxParentDepth)
		}
		seen[id] = true

		p, err := b.loader.LoadPOM(ctx, g, a, v)
		if err != nil {
			if len(chain) == 0 {
				return nil, err
			}
			return nil, fmt.Errorf("loading parent %s of %s:%s:%s: %w", id, group, artifact, version, err)
		}
		chain = append(chain, p)

		if p.Parent == nil || p.Parent.ArtifactID == "" {
			return chain, nil
		}
		g, a, v = p.Parent.GroupID, p.Parent.ArtifactID, p.Parent.Version
	}
}

func (m *Model) interpolateDependency(d Dependency) Dependency {
	d.GroupID = m.Interpolate(d.GroupID)
	d.ArtifactID = m.Interpolate(d.ArtifactID)
	d.Version = m.Interpolate(d.Version)
	d.Type = m.Interpolate(d.Type)
	d.Classifier = m.Interpolate(d.Classifier)
	d.Scope = m.Interpolate(d.Scope)
	d.Optional = m.Interpolate(d.Optional)
	if len(d.Exclusions) > 0 {
		ex := make([]Exclusion, len(d.Exclusions))
		for i, e := range d.Exclusions {
			ex[i] = Exclusion{GroupID: m.Interpolate(e.GroupID), ArtifactID: m.Interpolate(e.ArtifactID)}
		}
		d.Exclusions = ex
	}
	return d
}

// Interpolate expands ${name} references from the model's properties.
// Unknown references are left in place.
func (m *Model) Interpolate(s string) string {
	s = strings.TrimSpace(s)
	for range maxInterpolationPasses {
		if !strings.Contains(s, "${") {
			return s
		}
		next := expand(s, m.Properties)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func expand(s string, props map[string]string) string {
	var out strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			out.WriteString(s)
			return out.String()
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			out.WriteString(s)
			return out.String()
		}
		end += start
		name := s[start+2 : end]
		out.WriteString(s[:start])
		if v, ok := props[name]; ok {
			out.WriteString(v)
		} else {
			out.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
}
