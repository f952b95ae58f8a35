// Package fingerprint computes content digests used as cache keys.
//
// The digest is xxhash64, not a cryptographic hash: it only has to be
// collision-resistant enough to key a result cache, never to act as a
// security boundary.
package fingerprint

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Compute streams r through xxhash64 and returns the digest as a fixed
// 16-character hex string. Identical bytes yield identical digests
// regardless of how the reader chunks them.
func Compute(r io.Reader) (string, error) {
	d := xxhash.New()
	if _, err := io.Copy(d, r); err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return fmt.Sprintf("%016x", d.Sum64()), nil
}

// ComputeFile computes the digest of the file at path
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Compute(f)
}
