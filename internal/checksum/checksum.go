// Package checksum verifies downloaded asset integrity.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5  Algorithm = "md5"
	SHA1 Algorithm = "sha1"
)

// Verifier computes and checks digests of a local file.
type Verifier interface {
	// Sum returns the lowercase hex digest of path.
	Sum(path string) (string, error)
	// Verify reports whether path's digest matches want (case-insensitive).
	Verify(path, want string) (bool, error)
}

type hashVerifier struct {
	newHash func() hash.Hash
}

// New returns a Verifier for the named algorithm, or an error if alg is
// not recognized.
func New(alg Algorithm) (Verifier, error) {
	switch alg {
	case MD5:
		return hashVerifier{newHash: md5.New}, nil
	case SHA1:
		return hashVerifier{newHash: sha1.New}, nil
	default:
		return nil, fmt.Errorf("checksum: unsupported algorithm %q", alg)
	}
}

func (v hashVerifier) Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h := v.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (v hashVerifier) Verify(path, want string) (bool, error) {
	if want == "" {
		return true, nil
	}
	got, err := v.Sum(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, want), nil
}
