package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF derives length bytes from ikm using HKDF-SHA256 (RFC 5869), per
// spec §4.1. salt and info may be empty.
func HKDF(ikm, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("crypto: hkdf expand: %w", err)
	}
	return out, nil
}

// SHA256 returns the 32-byte SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}
