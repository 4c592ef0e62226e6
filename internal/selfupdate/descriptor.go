// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/graviton-app/graviton/pkg/coordinate"
)

const (
	// DefaultUpdateURL serves the update descriptor of the official build.
	DefaultUpdateURL = "https://update.graviton.app/"

	// maxDescriptorBytes caps the descriptor body (64 KB).
	maxDescriptorBytes = 64 << 10

	defaultDescriptorTimeout = 30 * time.Second
)

var (
	// ErrDescriptorNotFound is returned when the update server answers 404.
	ErrDescriptorNotFound = errors.New("update descriptor not found")

	// ErrInvalidDescriptor wraps every descriptor validation failure.
	ErrInvalidDescriptor = errors.New("invalid update descriptor")
)

type (
	// Descriptor announces the newest published build. The wire format is TOML:
	//
	//	version = 42
	//	coordinate = "app.graviton:graviton:42"
	//	sha256 = "..." # optional, digest of the root jar
	Descriptor struct {
		Version    int    `toml:"version"`
		Coordinate string `toml:"coordinate"`
		SHA256     string `toml:"sha256,omitempty"`
	}

	// DescriptorClient downloads update descriptors.
	DescriptorClient struct {
		httpClient *http.Client
		userAgent  string
	}

	// ClientOption configures a DescriptorClient during construction.
	ClientOption func(*DescriptorClient)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(d *DescriptorClient) {
		d.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(d *DescriptorClient) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// NewDescriptorClient creates a DescriptorClient with a bounded default timeout.
func NewDescriptorClient(opts ...ClientOption) *DescriptorClient {
	c := &DescriptorClient{
		httpClient: &http.Client{Timeout: defaultDescriptorTimeout},
		userAgent:  "graviton",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get downloads and validates the descriptor at uri.
func (c *DescriptorClient) Get(ctx context.Context, uri string) (*Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/toml, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching update descriptor: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", uri, ErrDescriptorNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching update descriptor %s: unexpected status %d", uri, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptorBytes))
	if err != nil {
		return nil, fmt.Errorf("reading update descriptor: %w", err)
	}
	return ParseDescriptor(body)
}

// ParseDescriptor decodes and validates a TOML descriptor. Unknown keys are
// rejected.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that the descriptor names a positive version and a
// concrete coordinate.
func (d *Descriptor) Validate() error {
	if d.Version <= 0 {
		return fmt.Errorf("%w: version must be positive, got %d", ErrInvalidDescriptor, d.Version)
	}
	c, err := coordinate.Parse(d.Coordinate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if c.IsDynamic() {
		return fmt.Errorf("%w: coordinate %q must name a concrete version", ErrInvalidDescriptor, d.Coordinate)
	}
	if d.SHA256 != "" && !isValidHexHash(d.SHA256) {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, ErrInvalidChecksum)
	}
	return nil
}

// Pinned returns the parsed coordinate. Validate must have succeeded.
func (d *Descriptor) Pinned() coordinate.Coordinate {
	return coordinate.MustParse(d.Coordinate)
}
