package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// NonceSize is the AES-256-GCM nonce size in bytes (spec §4.1).
const NonceSize = 12

// KeySize is the AEAD key size in bytes (AES-256).
const KeySize = 32

// TagSize is the AEAD authentication tag size in bytes.
const TagSize = 16

// SealAEAD encrypts plaintext under key/nonce with AES-256-GCM, binding
// aad into authentication. Returns ciphertext with the 16-byte tag
// appended, per spec §4.1's aead_seal contract.
func SealAEAD(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		panic(fmt.Sprintf("crypto: bad nonce length %d, want %d", len(nonce), aead.NonceSize()))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// OpenAEAD decrypts ciphertextWithTag under key/nonce, checking aad.
// Returns ErrAuthFailure on any tamper, wrong key, or wrong aad — never
// a more specific error, per spec §7's anti-side-channel guidance.
func OpenAEAD(key, nonce, ciphertextWithTag, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrAuthFailure
	}
	plaintext, err := aead.Open(nil, nonce, ciphertextWithTag, aad)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		panic(fmt.Sprintf("crypto: bad AEAD key length %d, want %d", len(key), KeySize))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new GCM: %w", err)
	}
	return aead, nil
}
