// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const manifestPath = "META-INF/MANIFEST.MF"

// ErrNoMainClass is returned when the application jar names no Main-Class
// and the request has no Entry.
var ErrNoMainClass = errors.New("no Main-Class in jar manifest")

// MainClass reads the Main-Class attribute of the jar at path.
func MainClass(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	f, err := zr.Open(manifestPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrNoMainClass)
	}
	defer func() { _ = f.Close() }()

	attrs, err := parseManifest(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	main := attrs["Main-Class"]
	if main == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoMainClass)
	}
	return main, nil
}

// parseManifest reads the main section of a jar manifest. Lines starting
// with a single space continue the previous value.
func parseManifest(r io.Reader) (map[string]string, error) {
	attrs := make(map[string]string)
	sc := bufio.NewScanner(r)

	var last string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, " ") {
			if last == "" {
				return nil, errors.New("manifest continuation without attribute")
			}
			attrs[last] += line[1:]
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		last = strings.TrimSpace(name)
		attrs[last] = strings.TrimSpace(value)
	}
	return attrs, sc.Err()
}

// entryPoint returns the class to run for req.
func entryPoint(req Request) (string, error) {
	if req.Entry != "" {
		return req.Entry, nil
	}
	return MainClass(req.root())
}
