// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"crypto/sha1" //nolint:gosec // Maven repositories publish SHA-1 sidecars.
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// errMalformedChecksum means a sidecar did not start with a 40-character hex digest.
var errMalformedChecksum = errors.New("malformed checksum sidecar")

// ChecksumError reports a digest that does not match the repository's
// declared checksum. It wraps ErrChecksumMismatch for errors.Is.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

// Error shows both digests.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ParseChecksum extracts the digest from a .sha1 sidecar. Sidecars are
// either the bare digest or "digest  filename" as written by sha1sum.
func ParseChecksum(body []byte) (string, error) {
	fields := strings.Fields(string(body))
	if len(fields) == 0 || !isValidSHA1(fields[0]) {
		return "", errMalformedChecksum
	}
	return strings.ToLower(fields[0]), nil
}

// NewHash returns the digest used for sidecar checksums.
func NewHash() hash.Hash {
	return sha1.New() //nolint:gosec // Maven repositories publish SHA-1 sidecars.
}

// Verify compares a computed digest with the expected one.
func Verify(filename, expected, got string) error {
	if !strings.EqualFold(expected, got) {
		return &ChecksumError{Filename: filename, Expected: strings.ToLower(expected), Got: strings.ToLower(got)}
	}
	return nil
}

// ComputeFileHash streams the file at path through NewHash and returns the
// lowercase hex digest.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := NewHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile hashes path and compares it with expected.
func VerifyFile(path, expected string) error {
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}
	return Verify(path, expected, got)
}

func isValidSHA1(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
