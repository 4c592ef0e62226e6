// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/graviton-app/graviton/internal/testutil"
)

const contentSHA1 = "040f06fd774092478d450774f5ba30c5da78acc8" // sha1("content")

func TestParseChecksum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"bare", contentSHA1, contentSHA1, false},
		{"sha1sum format", contentSHA1 + "  x.jar\n", contentSHA1, false},
		{"uppercase", "040F06FD774092478D450774F5BA30C5DA78ACC8", contentSHA1, false},
		{"empty", "", "", true},
		{"too short", "abc", "", true},
		{"not hex", "zz0f06fd774092478d450774f5ba30c5da78acc8", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseChecksum([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChecksum() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChecksum() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerifyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.jar")
	testutil.MustWriteFile(t, path, []byte("content"))

	if err := VerifyFile(path, contentSHA1); err != nil {
		t.Errorf("VerifyFile() error = %v", err)
	}

	err := VerifyFile(path, "0000000000000000000000000000000000000000")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("VerifyFile() error = %v, want ErrChecksumMismatch", err)
	}
	var ce *ChecksumError
	if !errors.As(err, &ce) || ce.Got != contentSHA1 {
		t.Errorf("ChecksumError = %+v", ce)
	}

	if _, err := ComputeFileHash(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ComputeFileHash(missing) should fail")
	}
}
