// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is Maven Central.
	DefaultBaseURL = "https://repo1.maven.org/maven2"

	// DefaultTimeout bounds metadata, POM and checksum requests.
	DefaultTimeout = 30 * time.Second

	// DefaultArtifactTimeout bounds a single artifact body download.
	DefaultArtifactTimeout = 10 * time.Minute

	// DefaultUserAgent is sent when no other user agent is configured.
	DefaultUserAgent = "graviton"

	// maxSmallResponseBytes caps metadata, POM and checksum bodies (10 MB).
	maxSmallResponseBytes = 10 << 20

	// UnknownLength is reported for bodies without a Content-Length.
	UnknownLength int64 = -1
)

type (
	// Client fetches files from one Maven-compatible repository.
	Client struct {
		httpClient      *http.Client
		baseURL         string
		timeout         time.Duration
		artifactTimeout time.Duration
		userAgent       string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)

	// Body is a streaming artifact download. Callers must Close it.
	Body struct {
		io.ReadCloser
		// Length is the declared content length or UnknownLength.
		Length int64
		URL    string
	}
)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL sets the repository root, for example "https://repo1.maven.org/maven2".
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithTimeout sets the timeout of metadata, POM and checksum requests.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithArtifactTimeout sets the timeout of one artifact body download.
func WithArtifactTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.artifactTimeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a Client for DefaultBaseURL unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		timeout:         DefaultTimeout,
		artifactTimeout: DefaultArtifactTimeout,
		userAgent:       DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = c.timeout
		c.httpClient = &http.Client{Transport: transport}
	}
	return c
}

// BaseURL returns the configured repository root.
func (c *Client) BaseURL() string { return c.baseURL }

// URL returns the absolute URL of a repository path. With useSSL false an
// https base is downgraded to http; useSSL true never upgrades a plain base.
func (c *Client) URL(path string, useSSL bool) string {
	base := c.baseURL
	if !useSSL {
		if rest, ok := strings.CutPrefix(base, "https://"); ok {
			base = "http://" + rest
		}
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// Metadata downloads and decodes maven-metadata.xml for a package.
// A 404 yields a NotFoundError wrapping ErrMetadataNotFound.
func (c *Client) Metadata(ctx context.Context, group, artifact string, useSSL bool) (*Metadata, error) {
	body, err := c.get(ctx, MetadataPath(group, artifact), useSSL)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			nf.Kind = ErrMetadataNotFound
			nf.What = group + ":" + artifact
		}
		return nil, err
	}

	md, err := ParseMetadata(body)
	if err != nil {
		return nil, fmt.Errorf("%s:%s: %w", group, artifact, err)
	}
	return md, nil
}

// File downloads a small repository file such as a POM. A 404 yields a
// NotFoundError wrapping ErrArtifactNotFound.
func (c *Client) File(ctx context.Context, path string, useSSL bool) ([]byte, error) {
	return c.get(ctx, path, useSSL)
}

// Checksum returns the declared SHA-1 of path, or "" when the repository
// publishes no sidecar.
func (c *Client) Checksum(ctx context.Context, path string, useSSL bool) (string, error) {
	body, err := c.get(ctx, ChecksumPath(path), useSSL)
	if errors.Is(err, ErrArtifactNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sum, err := ParseChecksum(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ChecksumPath(path), err)
	}
	return sum, nil
}

// Download opens a streaming download of path bounded by the artifact
// timeout. The timeout keeps running until the body is closed.
func (c *Client) Download(ctx context.Context, path string, useSSL bool) (*Body, error) {
	ctx, cancel := context.WithTimeout(ctx, c.artifactTimeout)
	resp, reqURL, err := c.do(ctx, path, useSSL)
	if err != nil {
		cancel()
		return nil, err
	}

	length := resp.ContentLength
	if length < 0 {
		length = UnknownLength
	}
	return &Body{
		ReadCloser: &cancelOnClose{ReadCloser: resp.Body, cancel: cancel, ctx: ctx, url: reqURL},
		Length:     length,
		URL:        reqURL,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, useSSL bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, reqURL, err := c.do(ctx, path, useSSL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSmallResponseBytes))
	if err != nil {
		return nil, classify(ctx, reqURL, err)
	}
	return body, nil
}

// do performs a GET and maps failures onto the package's error taxonomy.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, path string, useSSL bool) (*http.Response, string, error) {
	reqURL := c.URL(path, useSSL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, reqURL, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, reqURL, classify(ctx, reqURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, reqURL, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, reqURL, &NotFoundError{Kind: ErrArtifactNotFound, What: path, URL: reqURL}
	default:
		_ = resp.Body.Close()
		return nil, reqURL, &NetworkError{Reason: ReasonStatus, URL: reqURL, Status: resp.StatusCode}
	}
}

// classify turns a transport failure into a NetworkError. Cancellation by
// the caller is returned unchanged so it is not mistaken for a network fault.
func classify(ctx context.Context, reqURL string, err error) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &NetworkError{Reason: ReasonTimeout, URL: reqURL, Err: err}
	}
	return &NetworkError{Reason: ReasonTransport, URL: reqURL, Err: err}
}

type cancelOnClose struct {
	io.ReadCloser
	ctx    context.Context
	cancel context.CancelFunc
	url    string
}

func (r *cancelOnClose) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = classify(r.ctx, r.url, err)
	}
	return n, err
}

func (r *cancelOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
