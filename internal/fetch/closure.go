// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/graviton-app/graviton/internal/dag"
	"github.com/graviton-app/graviton/internal/maven"
)

type node struct {
	artifact   maven.Artifact
	hasJar     bool
	exclusions []maven.Exclusion
}

// closure walks the dependency graph of root breadth first and returns the
// jars to put on the class path, dependencies first and root last.
//
// Only compile and runtime scopes are followed, optional dependencies and
// exclusions are honored, and the first (nearest) version seen for a
// group:artifact wins. Duplicates collapse by full artifact identity.
func (s *session) closure(ctx context.Context, root maven.Artifact) ([]maven.Artifact, error) {
	rootModel, err := maven.BuildModel(ctx, s, root.Group, root.Artifact, root.Version)
	if err != nil {
		return nil, err
	}

	start := &node{artifact: root, hasJar: rootModel.Packaging != maven.ExtPOM}
	chosen := map[string]*node{mediationKey(root): start}
	bfs := []*node{start}

	graph := dag.New()
	graph.AddNode(root.ID())

	for i := 0; i < len(bfs); i++ {
		n := bfs[i]
		model := rootModel
		if i > 0 {
			model, err = maven.BuildModel(ctx, s, n.artifact.Group, n.artifact.Artifact, n.artifact.Version)
			if err != nil {
				return nil, fmt.Errorf("dependency %s: %w", n.artifact, err)
			}
		}

		for _, dep := range model.Dependencies {
			child, ok, err := s.childOf(ctx, n, dep)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			key := mediationKey(child.artifact)
			if existing, seen := chosen[key]; seen {
				if existing.artifact.Version != child.artifact.Version {
					s.fetcher.logger.Debug("dependency version mediated",
						"artifact", key, "kept", existing.artifact.Version, "omitted", child.artifact.Version, "via", n.artifact.String())
				}
				graph.AddEdge(existing.artifact.ID(), n.artifact.ID())
				continue
			}
			chosen[key] = child
			bfs = append(bfs, child)
			graph.AddEdge(child.artifact.ID(), n.artifact.ID())
		}
	}

	byID := make(map[string]*node, len(bfs))
	for _, n := range bfs {
		byID[n.artifact.ID()] = n
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		var cycle *dag.CycleError
		if !errors.As(err, &cycle) {
			return nil, err
		}
		s.fetcher.logger.Warn("dependency cycle, falling back to breadth-first order", "root", root.String(), "cycle", strings.Join(cycle.Cycle, ", "))
		order = make([]string, 0, len(bfs))
		for _, n := range slices.Backward(bfs) {
			order = append(order, n.artifact.ID())
		}
	}

	jars := make([]maven.Artifact, 0, len(order))
	for _, id := range order {
		if n := byID[id]; n.hasJar {
			jars = append(jars, n.artifact)
		}
	}
	return jars, nil
}

// childOf applies scope, optional, type and exclusion filters to dep and
// pins its version. ok is false when the dependency is not part of the
// runtime closure.
func (s *session) childOf(ctx context.Context, parent *node, dep maven.Dependency) (*node, bool, error) {
	switch dep.ScopeOrDefault() {
	case maven.ScopeCompile, maven.ScopeRuntime:
	default:
		return nil, false, nil
	}
	if dep.IsOptional() {
		return nil, false, nil
	}
	for _, ex := range parent.exclusions {
		if ex.Excludes(dep.GroupID, dep.ArtifactID) {
			return nil, false, nil
		}
	}

	var hasJar bool
	switch dep.TypeOrDefault() {
	case maven.ExtJar, "bundle":
		hasJar = true
	case maven.ExtPOM:
		hasJar = false
	default:
		return nil, false, nil
	}

	version, err := s.pinVersion(ctx, dep)
	if err != nil {
		return nil, false, fmt.Errorf("dependency %s:%s of %s: %w", dep.GroupID, dep.ArtifactID, parent.artifact, err)
	}

	return &node{
		artifact: maven.Artifact{
			Group:      dep.GroupID,
			Artifact:   dep.ArtifactID,
			Version:    version,
			Classifier: dep.Classifier,
			Extension:  maven.ExtJar,
		},
		hasJar:     hasJar,
		exclusions: append(slices.Clone(parent.exclusions), dep.Exclusions...),
	}, true, nil
}

// pinVersion turns a version requirement into a concrete version. Ranges
// are matched against the package's metadata.
func (s *session) pinVersion(ctx context.Context, dep maven.Dependency) (string, error) {
	if dep.Version == "" {
		return "", errors.New("no version declared or managed")
	}
	if strings.Contains(dep.Version, "${") {
		return "", fmt.Errorf("unresolved property in version %q", dep.Version)
	}
	if !maven.IsRange(dep.Version) {
		return dep.Version, nil
	}

	r, err := maven.ParseRange(dep.Version)
	if err != nil {
		return "", err
	}
	md, err := s.metadata(ctx, dep.GroupID, dep.ArtifactID)
	if err != nil {
		return "", err
	}
	v, ok := md.Highest(r)
	if !ok {
		return "", &maven.NotFoundError{Kind: maven.ErrArtifactNotFound, What: fmt.Sprintf("no version of %s:%s in %s", dep.GroupID, dep.ArtifactID, dep.Version)}
	}
	return v, nil
}

// mediationKey groups artifacts that compete for one class path slot.
func mediationKey(a maven.Artifact) string {
	if a.Classifier == "" {
		return a.Group + ":" + a.Artifact
	}
	return a.Group + ":" + a.Artifact + ":" + a.Classifier
}
