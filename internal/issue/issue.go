// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	UnknownPackageId Id = iota + 1
	MalformedCoordinateId
	ArtifactNotFoundId
	ChecksumMismatchId
	NetworkUnavailableId
	OfflineUncachedId
	CacheCorruptionId
	JavaNotFoundId
	ContainerEngineNotFoundId
	NoMainClassId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with the given glamour style ("dark", "light",
// "notty" or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	unknownPackageIssue = &Issue{
		id: UnknownPackageId,
		mdMsg: `
# Unknown package

The repository has no metadata for this groupId:artifactId pair, so there is
no version to run.

## Things you can try
- Check the coordinate for typos. Group ids are usually reversed domain names:
~~~
$ graviton com.github.ricksbrown:cowsay "Hello"
~~~
- Search Maven Central for the artifact and copy its coordinate.
- If the package lives in another repository, point graviton at it:
~~~cue
repository: url: "https://repo.example.com/maven2"
~~~`,
		extLinks: []HttpLink{"https://central.sonatype.com/"},
	}

	malformedCoordinateIssue = &Issue{
		id: MalformedCoordinateId,
		mdMsg: `
# Could not understand that coordinate

Coordinates use the Maven ` + "`groupId:artifactId[:version]`" + ` syntax.

## Examples
~~~
$ graviton com.github.ricksbrown:cowsay
$ graviton com.github.ricksbrown:cowsay:1.1.0
$ graviton com.github.ricksbrown:cowsay:LATEST -f tux "Hi"
~~~`,
	}

	artifactNotFoundIssue = &Issue{
		id: ArtifactNotFoundId,
		mdMsg: `
# Could not locate the requested application

The version was resolved, but the repository does not serve its POM or jar,
or one of its dependencies is missing.

## Things you can try
- Pin an older version explicitly.
- Run with ` + "`--refresh`" + ` to re-read the repository metadata.
- Run with ` + "`--verbose`" + ` to see which file was missing.`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Download failed verification

A downloaded file did not match the SHA-1 checksum published next to it,
even after a retry. Nothing was added to the cache.

## Things you can try
- Retry later; the repository or a mirror may be mid-publish.
- If you use ` + "`--no-ssl`" + `, drop it: plain HTTP lets proxies rewrite downloads.`,
	}

	networkUnavailableIssue = &Issue{
		id: NetworkUnavailableId,
		mdMsg: `
# Could not reach the repository

## Things you can try
- Check your network connection and proxy settings.
- Raise the timeouts:
~~~cue
repository: {
	timeout:          "60s"
	artifact_timeout: "30m"
}
~~~
- Run with ` + "`--offline`" + ` to use what is already cached.`,
	}

	offlineUncachedIssue = &Issue{
		id: OfflineUncachedId,
		mdMsg: `
# Not available offline

Offline mode only serves coordinates that were fetched before, and this one
is not in the cache.

## Things you can try
- Run once without ` + "`--offline`" + ` to populate the cache.
- List what is cached:
~~~
$ graviton cache list
~~~`,
	}

	cacheCorruptionIssue = &Issue{
		id: CacheCorruptionId,
		mdMsg: `
# The cache is damaged

The history index could not be read or written.

## Things you can try
- Clear the cache and run again:
~~~
$ graviton cache clear
~~~
- Check that the cache directory is writable (see ` + "`graviton config show`" + `).`,
	}

	javaNotFoundIssue = &Issue{
		id: JavaNotFoundId,
		mdMsg: `
# Java not found

The jvm runtime needs a ` + "`java`" + ` executable.

## Where graviton looks
1. ` + "`runtime.java_home`" + ` from the config file
2. ` + "`$JAVA_HOME/bin/java`" + `
3. ` + "`java`" + ` on your PATH

## Things you can try
- Install a JRE (21 or newer is recommended).
- Or run inside a container instead:
~~~cue
runtime: kind: "container"
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not available

The container runtime needs Docker or Podman with a running daemon.

## Things you can try
- Install Podman (https://podman.io) or Docker (https://docker.com).
- Start the Docker daemon, or the Podman machine on macOS.
- Switch back to the local JVM:
~~~cue
runtime: kind: "jvm"
~~~`,
	}

	noMainClassIssue = &Issue{
		id: NoMainClassId,
		mdMsg: `
# Not a runnable jar

The jar has no ` + "`Main-Class`" + ` in its manifest, so graviton does not know
what to start. This is usual for libraries.

## Things you can try
- Name the entry point explicitly:
~~~
$ graviton --main com.example.Main com.example:tool
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

## Things you can try
- Check the CUE syntax of your config file.
- Print the effective configuration:
~~~
$ graviton config show
~~~
- Write a fresh default file:
~~~
$ graviton config init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

graviton could not write to its cache or configuration directory.

## Things you can try
- Check the permissions of the directories shown by ` + "`graviton config show`" + `.
- Use a cache you own:
~~~
$ graviton --cache-path ~/.cache/graviton-alt com.example:tool
~~~`,
	}

	issues = map[Id]*Issue{
		unknownPackageIssue.Id():          unknownPackageIssue,
		malformedCoordinateIssue.Id():     malformedCoordinateIssue,
		artifactNotFoundIssue.Id():        artifactNotFoundIssue,
		checksumMismatchIssue.Id():        checksumMismatchIssue,
		networkUnavailableIssue.Id():      networkUnavailableIssue,
		offlineUncachedIssue.Id():         offlineUncachedIssue,
		cacheCorruptionIssue.Id():         cacheCorruptionIssue,
		javaNotFoundIssue.Id():            javaNotFoundIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		noMainClassIssue.Id():             noMainClassIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := slices.Collect(maps.Values(issues))
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
