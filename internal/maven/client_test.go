// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/graviton-app/graviton/internal/testutil/mavenrepotest"
)

func TestClient_URL(t *testing.T) {
	t.Parallel()

	c := NewClient(WithBaseURL("https://repo.example.com/maven2/"))
	if got := c.URL("org/x/x/1/x-1.jar", true); got != "https://repo.example.com/maven2/org/x/x/1/x-1.jar" {
		t.Errorf("URL(ssl) = %q", got)
	}
	if got := c.URL("/org/x/x/1/x-1.jar", false); got != "http://repo.example.com/maven2/org/x/x/1/x-1.jar" {
		t.Errorf("URL(no ssl) = %q", got)
	}

	plain := NewClient(WithBaseURL("http://localhost:8080"))
	if got := plain.URL("a", true); got != "http://localhost:8080/a" {
		t.Errorf("URL must never upgrade to https, got %q", got)
	}
}

func TestClient_Metadata(t *testing.T) {
	t.Parallel()

	repo := mavenrepotest.New(t)
	repo.AddMetadata("org.example", "hello", "0.9", "1.0.0")
	c := NewClient(WithBaseURL(repo.URL))

	md, err := c.Metadata(context.Background(), "org.example", "hello", true)
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if v, _ := md.Newest(); v != "1.0.0" {
		t.Errorf("Newest() = %q", v)
	}

	_, err = c.Metadata(context.Background(), "org.example", "missing", true)
	if !errors.Is(err, ErrMetadataNotFound) {
		t.Fatalf("Metadata(missing) error = %v, want ErrMetadataNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.What != "org.example:missing" {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestClient_FileNotFound(t *testing.T) {
	t.Parallel()

	repo := mavenrepotest.New(t)
	c := NewClient(WithBaseURL(repo.URL))

	_, err := c.File(context.Background(), "org/x/x/1/x-1.pom", true)
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("File() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestClient_Checksum(t *testing.T) {
	t.Parallel()

	repo := mavenrepotest.New(t)
	repo.Put("a/b.jar", []byte("content"))
	repo.Put("a/c.jar", []byte("content"))
	repo.OmitChecksum("a/c.jar")
	c := NewClient(WithBaseURL(repo.URL))

	sum, err := c.Checksum(context.Background(), "a/b.jar", true)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if sum != "040f06fd774092478d450774f5ba30c5da78acc8" {
		t.Errorf("Checksum() = %q", sum)
	}

	sum, err = c.Checksum(context.Background(), "a/c.jar", true)
	if err != nil || sum != "" {
		t.Errorf("Checksum(undeclared) = %q, %v; want empty, nil", sum, err)
	}
}

func TestClient_Download(t *testing.T) {
	t.Parallel()

	repo := mavenrepotest.New(t)
	repo.Put("a/sized.jar", []byte("0123456789"))
	repo.Put("a/unsized.jar", []byte("0123456789"))
	repo.OmitContentLength("a/unsized.jar")
	c := NewClient(WithBaseURL(repo.URL))

	tests := []struct {
		path       string
		wantLength int64
	}{
		{"a/sized.jar", 10},
		{"a/unsized.jar", UnknownLength},
	}

	for _, tt := range tests {
		body, err := c.Download(context.Background(), tt.path, true)
		if err != nil {
			t.Fatalf("Download(%s) error = %v", tt.path, err)
		}
		data, err := io.ReadAll(body)
		_ = body.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", tt.path, err)
		}
		if string(data) != "0123456789" {
			t.Errorf("%s body = %q", tt.path, data)
		}
		if body.Length != tt.wantLength {
			t.Errorf("%s Length = %d, want %d", tt.path, body.Length, tt.wantLength)
		}
	}
}

func TestClient_StatusAndTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		case "/ua":
			if r.Header.Get("User-Agent") != "graviton-test" {
				w.WriteHeader(http.StatusForbidden)
			}
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond), WithUserAgent("graviton-test"))

	_, err := c.File(context.Background(), "broken", true)
	var ne *NetworkError
	if !errors.As(err, &ne) || ne.Reason != ReasonStatus || ne.Status != http.StatusBadGateway {
		t.Errorf("File(broken) error = %v, want status NetworkError", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("NetworkError should wrap ErrNetwork")
	}

	_, err = c.File(context.Background(), "slow", true)
	if !errors.As(err, &ne) || ne.Reason != ReasonTimeout {
		t.Errorf("File(slow) error = %v, want timeout NetworkError", err)
	}

	if _, err := c.File(context.Background(), "ua", true); err != nil {
		t.Errorf("File(ua) error = %v, user agent not sent", err)
	}
}

func TestClient_CancelledContextIsNotNetworkError(t *testing.T) {
	t.Parallel()

	repo := mavenrepotest.New(t)
	repo.AddMetadata("g", "a", "1")
	c := NewClient(WithBaseURL(repo.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Metadata(ctx, "g", "a", true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Metadata() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrNetwork) {
		t.Error("cancellation must not be reported as a network error")
	}
}

func TestOfflineUncached(t *testing.T) {
	t.Parallel()

	err := OfflineUncached("org.example:hello")
	if !IsOfflineUncached(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("OfflineUncached() = %v", err)
	}
	if IsOfflineUncached(&NetworkError{Reason: ReasonTimeout}) {
		t.Error("timeout is not offline-uncached")
	}
}
