package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash turns a plaintext into a digest and checks candidates against it.
type Hash interface {
	// Hash returns the hex-encoded digest of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether str produces the given digest.
	Verify(hashed, str string) bool
}

// SHA256 implements Hash with an unkeyed SHA-256 digest.
type SHA256 struct{}

// NewSHA256 returns an unkeyed SHA-256 hasher.
func NewSHA256() *SHA256 {
	return &SHA256{}
}

// Hash returns the hex-encoded SHA-256 digest of str.
func (*SHA256) Hash(str string) ([]byte, error) {
	sum := sha256.Sum256([]byte(str))
	return hexBytes(sum[:]), nil
}

// Verify reports whether the digest of str equals hashed.
func (s *SHA256) Verify(hashed, str string) bool {
	//nolint:errcheck // sha256 never fails
	expected, _ := s.Hash(str)
	return subtle.ConstantTimeCompare([]byte(hashed), expected) == 1
}

func hexBytes(sum []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}
