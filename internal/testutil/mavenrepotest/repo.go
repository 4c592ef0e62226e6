// SPDX-License-Identifier: MPL-2.0

package mavenrepotest

import (
	"crypto/sha1" //nolint:gosec // Maven sidecar checksums are SHA-1.
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type (
	// Dependency is a <dependency> entry written into a generated POM.
	Dependency struct {
		Group      string
		Artifact   string
		Version    string
		Scope      string
		Type       string
		Optional   bool
		Exclusions []string // "group:artifact"
	}

	// Artifact describes a published module: its POM and, unless the
	// packaging is "pom", a jar.
	Artifact struct {
		Group     string
		Artifact  string
		Version   string
		Packaging string
		// Parent is "group:artifact:version" of the parent POM, if any.
		Parent       string
		Properties   map[string]string
		Dependencies []Dependency
		// Managed entries go into <dependencyManagement>.
		Managed []Dependency
		// Jar is the jar body. Defaults to a short marker derived from the coordinate.
		Jar []byte
		// POM replaces the generated POM when non-empty.
		POM string
	}

	// Server is an httptest-backed Maven repository.
	Server struct {
		*httptest.Server

		mu        sync.Mutex
		files     map[string][]byte
		requests  map[string]int
		badSums   map[string]int
		noLength  map[string]bool
		noSidecar map[string]bool
		gate      chan struct{}
	}
)

// New starts a repository server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		files:     make(map[string][]byte),
		requests:  make(map[string]int),
		badSums:   make(map[string]int),
		noLength:  make(map[string]bool),
		noSidecar: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Dir returns the repository directory of a module version.
func Dir(group, artifact, version string) string {
	return strings.ReplaceAll(group, ".", "/") + "/" + artifact + "/" + version
}

// JarPath returns the repository-relative jar path.
func JarPath(group, artifact, version string) string {
	return Dir(group, artifact, version) + "/" + artifact + "-" + version + ".jar"
}

// POMPath returns the repository-relative POM path.
func POMPath(group, artifact, version string) string {
	return Dir(group, artifact, version) + "/" + artifact + "-" + version + ".pom"
}

// MetadataPath returns the repository-relative maven-metadata.xml path.
func MetadataPath(group, artifact string) string {
	return strings.ReplaceAll(group, ".", "/") + "/" + artifact + "/maven-metadata.xml"
}

// Put publishes body at path together with its .sha1 sidecar.
func (s *Server) Put(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = body
}

// AddArtifact publishes the POM and jar of a.
func (s *Server) AddArtifact(a Artifact) {
	pom := a.POM
	if pom == "" {
		pom = a.renderPOM()
	}
	s.Put(POMPath(a.Group, a.Artifact, a.Version), []byte(pom))

	if a.Packaging == "pom" {
		return
	}
	jar := a.Jar
	if jar == nil {
		jar = []byte(fmt.Sprintf("jar:%s:%s:%s", a.Group, a.Artifact, a.Version))
	}
	s.Put(JarPath(a.Group, a.Artifact, a.Version), jar)
}

// AddMetadata publishes maven-metadata.xml listing versions in order. The
// last version is reported as latest and release. No versions produces an
// empty <versions/> element.
func (s *Server) AddMetadata(group, artifact string, versions ...string) {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<metadata>\n")
	fmt.Fprintf(&b, "  <groupId>%s</groupId>\n  <artifactId>%s</artifactId>\n  <versioning>\n", group, artifact)
	if len(versions) > 0 {
		last := versions[len(versions)-1]
		fmt.Fprintf(&b, "    <latest>%s</latest>\n    <release>%s</release>\n", last, last)
	}
	b.WriteString("    <versions>\n")
	for _, v := range versions {
		fmt.Fprintf(&b, "      <version>%s</version>\n", v)
	}
	b.WriteString("    </versions>\n  </versioning>\n</metadata>\n")
	s.Put(MetadataPath(group, artifact), []byte(b.String()))
}

// CorruptChecksum makes the next n .sha1 responses for path disagree with
// its content. A negative n corrupts every response.
func (s *Server) CorruptChecksum(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badSums[path] = n
}

// OmitContentLength streams path without a Content-Length header.
func (s *Server) OmitContentLength(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noLength[path] = true
}

// OmitChecksum makes the .sha1 sidecar of path return 404.
func (s *Server) OmitChecksum(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noSidecar[path] = true
}

// Hold blocks every jar download until the returned function is called.
func (s *Server) Hold() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Requests returns how many times path was requested.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// MetadataRequests counts maven-metadata.xml requests across all modules.
func (s *Server) MetadataRequests() int { return s.countSuffix("/maven-metadata.xml") }

// JarRequests counts jar body requests across all modules.
func (s *Server) JarRequests() int { return s.countSuffix(".jar") }

// TotalRequests counts every request served.
func (s *Server) TotalRequests() int { return s.countSuffix("") }

func (s *Server) countSuffix(suffix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for path, n := range s.requests {
		if strings.HasSuffix(path, suffix) {
			total += n
		}
	}
	return total
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	s.requests[path]++
	body, sidecar, ok := s.lookup(path)
	noLength := s.noLength[path]
	gate := s.gate
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(path, ".jar") && gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if noLength && !sidecar {
		half := len(body) / 2
		_, _ = w.Write(body[:half])
		if f, canFlush := w.(http.Flusher); canFlush {
			f.Flush()
		}
		_, _ = w.Write(body[half:])
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

// lookup must be called with mu held.
func (s *Server) lookup(path string) (body []byte, sidecar, ok bool) {
	if target, isSum := strings.CutSuffix(path, ".sha1"); isSum {
		content, exists := s.files[target]
		if !exists || s.noSidecar[target] {
			return nil, true, false
		}
		sum := sha1.Sum(content) //nolint:gosec // Maven sidecar checksums are SHA-1.
		digest := hex.EncodeToString(sum[:])
		if n := s.badSums[target]; n != 0 {
			digest = strings.Repeat("0", len(digest))
			if n > 0 {
				s.badSums[target] = n - 1
			}
		}
		return []byte(digest + "  " + target[strings.LastIndex(target, "/")+1:] + "\n"), true, true
	}
	body, ok = s.files[path]
	return body, false, ok
}

func (a Artifact) renderPOM() string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<project>\n  <modelVersion>4.0.0</modelVersion>\n")
	if a.Parent != "" {
		parts := strings.Split(a.Parent, ":")
		fmt.Fprintf(&b, "  <parent>\n    <groupId>%s</groupId>\n    <artifactId>%s</artifactId>\n    <version>%s</version>\n  </parent>\n",
			parts[0], parts[1], parts[2])
	}
	fmt.Fprintf(&b, "  <groupId>%s</groupId>\n  <artifactId>%s</artifactId>\n  <version>%s</version>\n", a.Group, a.Artifact, a.Version)
	if a.Packaging != "" {
		fmt.Fprintf(&b, "  <packaging>%s</packaging>\n", a.Packaging)
	}
	if len(a.Properties) > 0 {
		b.WriteString("  <properties>\n")
		for k, v := range a.Properties {
			fmt.Fprintf(&b, "    <%s>%s</%s>\n", k, v, k)
		}
		b.WriteString("  </properties>\n")
	}
	if len(a.Managed) > 0 {
		b.WriteString("  <dependencyManagement>\n")
		writeDependencies(&b, a.Managed, "    ")
		b.WriteString("  </dependencyManagement>\n")
	}
	writeDependencies(&b, a.Dependencies, "  ")
	b.WriteString("</project>\n")
	return b.String()
}

func writeDependencies(b *strings.Builder, deps []Dependency, indent string) {
	if len(deps) == 0 {
		return
	}
	b.WriteString(indent + "<dependencies>\n")
	for _, d := range deps {
		b.WriteString(indent + "  <dependency>\n")
		fmt.Fprintf(b, "%s    <groupId>%s</groupId>\n%s    <artifactId>%s</artifactId>\n", indent, d.Group, indent, d.Artifact)
		if d.Version != "" {
			fmt.Fprintf(b, "%s    <version>%s</version>\n", indent, d.Version)
		}
		if d.Type != "" {
			fmt.Fprintf(b, "%s    <type>%s</type>\n", indent, d.Type)
		}
		if d.Scope != "" {
			fmt.Fprintf(b, "%s    <scope>%s</scope>\n", indent, d.Scope)
		}
		if d.Optional {
			fmt.Fprintf(b, "%s    <optional>true</optional>\n", indent)
		}
		if len(d.Exclusions) > 0 {
			b.WriteString(indent + "    <exclusions>\n")
			for _, ex := range d.Exclusions {
				parts := strings.SplitN(ex, ":", 2)
				fmt.Fprintf(b, "%s      <exclusion><groupId>%s</groupId><artifactId>%s</artifactId></exclusion>\n",
					indent, parts[0], parts[1])
			}
			b.WriteString(indent + "    </exclusions>\n")
		}
		b.WriteString(indent + "  </dependency>\n")
	}
	b.WriteString(indent + "</dependencies>\n")
}
