package sampledata

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// defaultAlgorithm applies to checksums written as bare hex.
const defaultAlgorithm = "sha256"

// hashAlgorithm describes a supported checksum algorithm.
type hashAlgorithm struct {
	// hexLen is the length of a hex-encoded digest.
	hexLen int

	// newHash returns a fresh hasher.
	newHash func() hash.Hash
}

var hashAlgorithms = map[string]hashAlgorithm{
	"md5":    {hexLen: 32, newHash: md5.New},
	"sha1":   {hexLen: 40, newHash: sha1.New},
	"sha256": {hexLen: 64, newHash: sha256.New},
	"sha512": {hexLen: 128, newHash: sha512.New},
	"blake3": {hexLen: 64, newHash: func() hash.Hash { return blake3.New() }},
}

// checksum is a parsed "algorithm:hex" digest.
type checksum struct {
	algorithm string
	digest    string
}

// parseChecksum parses "algorithm:hex" or bare hex (sha256).
// The digest is normalized to lowercase.
func parseChecksum(s string) (checksum, error) {
	algorithm, digest, found := strings.Cut(s, ":")
	if !found {
		algorithm, digest = defaultAlgorithm, s
	}
	algorithm = strings.ToLower(algorithm)
	digest = strings.ToLower(digest)

	alg, ok := hashAlgorithms[algorithm]
	if !ok {
		return checksum{}, &ValidationError{Field: "checksum", Value: s, Reason: "unsupported algorithm " + algorithm}
	}
	if len(digest) != alg.hexLen {
		return checksum{}, &ValidationError{Field: "checksum", Value: s, Reason: fmt.Sprintf("%s digest must be %d hex characters", algorithm, alg.hexLen)}
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return checksum{}, &ValidationError{Field: "checksum", Value: s, Reason: "digest is not hex"}
	}
	return checksum{algorithm: algorithm, digest: digest}, nil
}

// String returns the canonical "algorithm:hex" form.
func (c checksum) String() string {
	return c.algorithm + ":" + c.digest
}

// newHash returns a hasher for the checksum's algorithm.
func (c checksum) newHash() hash.Hash {
	return hashAlgorithms[c.algorithm].newHash()
}

// matches reports whether a finished hasher produced this checksum.
func (c checksum) matches(h hash.Hash) bool {
	return hex.EncodeToString(h.Sum(nil)) == c.digest
}

// verifyFile hashes the file at path and compares it to expected.
// Returns ErrHashMismatch if verification fails.
func verifyFile(path string, expected checksum) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer f.Close()

	h := expected.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrStorage, path, err)
	}
	if !expected.matches(h) {
		return ErrHashMismatch
	}
	return nil
}
