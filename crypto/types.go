// Package crypto provides cryptographic operations for ChainOfProduct:
// thin, typed wrappers over AEAD, signatures, key agreement, KDF and
// hashing, plus the KeyPair/KeyStorage/KeyExporter/KeyImporter
// interfaces the rest of the module builds on.
package crypto

import (
	"crypto"
	"errors"
)

// KeyType represents the type of cryptographic key.
type KeyType string

const (
	// KeyTypeEd25519 is a signing key (EdDSA over Curve25519).
	KeyTypeEd25519 KeyType = "Ed25519"
	// KeyTypeX25519 is a key-agreement key (ECDH over Curve25519).
	KeyTypeX25519 KeyType = "X25519"
)

// KeyFormat represents the format for key export/import.
type KeyFormat string

const (
	// KeyFormatJWK is the JSON Web Key format (OKP keys only).
	KeyFormatJWK KeyFormat = "JWK"
)

// KeyPair represents a cryptographic key pair
type KeyPair interface {
	// PublicKey returns the public key
	PublicKey() crypto.PublicKey

	// PrivateKey returns the private key
	PrivateKey() crypto.PrivateKey

	// Type returns the key type
	Type() KeyType

	// Sign signs the given message. Returns ErrSignNotSupported for
	// key-agreement-only key types.
	Sign(message []byte) ([]byte, error)

	// Verify verifies the signature. Returns ErrVerifyNotSupported for
	// key-agreement-only key types.
	Verify(message, signature []byte) error

	// ID returns a unique identifier for this key pair
	ID() string
}

// KeyExporter handles key export operations
type KeyExporter interface {
	// Export exports the key pair in the specified format
	Export(keyPair KeyPair, format KeyFormat) ([]byte, error)

	// ExportPublic exports only the public key
	ExportPublic(keyPair KeyPair, format KeyFormat) ([]byte, error)
}

// KeyImporter handles key import operations
type KeyImporter interface {
	// Import imports a key pair from the specified format
	Import(data []byte, format KeyFormat) (KeyPair, error)

	// ImportPublic imports only a public key
	ImportPublic(data []byte, format KeyFormat) (crypto.PublicKey, error)
}

// KeyStorage provides secure storage for key pairs, keyed by an opaque ID
type KeyStorage interface {
	// Store stores a key pair with the given ID
	Store(id string, keyPair KeyPair) error

	// Load loads a key pair by ID
	Load(id string) (KeyPair, error)

	// Delete removes a key pair by ID
	Delete(id string) error

	// List returns all stored key IDs
	List() ([]string, error)

	// Exists checks if a key exists
	Exists(id string) bool
}

// Common errors. ErrAuthFailure is the same value as
// pipeline.ErrAuthFailure, and pipeline.ErrSignatureInvalid reuses its
// text, so callers can't distinguish tamper, wrong key or a bad
// signature by error text alone.
var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrInvalidKeyType     = errors.New("invalid key type")
	ErrInvalidKeyFormat   = errors.New("invalid key format")
	ErrKeyExists          = errors.New("key already exists")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSignNotSupported   = errors.New("key type does not support signing")
	ErrVerifyNotSupported = errors.New("key type does not support verification")
	ErrAuthFailure        = errors.New("authenticated decryption failed")
	ErrRandomnessFailure  = errors.New("secure random source failed")
)
