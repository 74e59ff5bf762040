// Package keystore persists one party's IdentityKeyPair (a signing key
// and an encryption key) and retrieves it by party name, per the
// KeyStore component: generate is write-once, load is read-only, and
// secrets never cross the store's boundary.
package keystore

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"errors"
	"fmt"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/keys"
)

// ErrAlreadyExists is returned by Generate when a party already has an
// IdentityKeyPair on record.
var ErrAlreadyExists = errors.New("identity key pair already exists")

// ErrNotFound is returned by Load/Publics when no IdentityKeyPair is
// on record for the given party.
var ErrNotFound = errors.New("identity key pair not found")

// IdentityKeyPair bundles one party's signing and encryption key pairs.
type IdentityKeyPair struct {
	Name    string
	Signing copcrypto.KeyPair // Ed25519
	Encrypt copcrypto.KeyPair // X25519
}

// KeyStore persists IdentityKeyPairs scoped by party name. It delegates
// generation and raw storage access to a crypto.Manager, which is the
// one place key-type dispatch and backend selection live.
type KeyStore struct {
	mgr *copcrypto.Manager
}

// New wraps a crypto.KeyStorage backend (in-memory or file-based), via
// a crypto.Manager, as a party-scoped IdentityKeyPair store.
func New(storage copcrypto.KeyStorage) *KeyStore {
	return &KeyStore{mgr: copcrypto.NewManagerWithStorage(storage)}
}

func signingID(name string) string { return name + ".signing" }
func encryptID(name string) string { return name + ".encrypt" }

// Generate creates a new IdentityKeyPair for name. Fails ErrAlreadyExists
// if one is already on record — generation is write-once, never an
// overwrite.
func (ks *KeyStore) Generate(name string) (*IdentityKeyPair, error) {
	storage := ks.mgr.Storage()
	if storage.Exists(signingID(name)) || storage.Exists(encryptID(name)) {
		return nil, fmt.Errorf("keystore: %s: %w", name, ErrAlreadyExists)
	}

	signing, err := ks.mgr.GenerateKeyPair(copcrypto.KeyTypeEd25519)
	if err != nil {
		return nil, fmt.Errorf("keystore: generate signing key: %w", err)
	}
	encrypt, err := ks.mgr.GenerateKeyPair(copcrypto.KeyTypeX25519)
	if err != nil {
		return nil, fmt.Errorf("keystore: generate encryption key: %w", err)
	}

	if err := storage.Store(signingID(name), signing); err != nil {
		return nil, fmt.Errorf("keystore: store signing key: %w", err)
	}
	if err := storage.Store(encryptID(name), encrypt); err != nil {
		return nil, fmt.Errorf("keystore: store encryption key: %w", err)
	}

	return &IdentityKeyPair{Name: name, Signing: signing, Encrypt: encrypt}, nil
}

// Load retrieves name's IdentityKeyPair, including secrets. Fails
// ErrNotFound if name has no record.
func (ks *KeyStore) Load(name string) (*IdentityKeyPair, error) {
	storage := ks.mgr.Storage()
	signing, err := storage.Load(signingID(name))
	if err != nil {
		return nil, fmt.Errorf("keystore: %s: %w", name, ErrNotFound)
	}
	encrypt, err := storage.Load(encryptID(name))
	if err != nil {
		return nil, fmt.Errorf("keystore: %s: %w", name, ErrNotFound)
	}
	return &IdentityKeyPair{Name: name, Signing: signing, Encrypt: encrypt}, nil
}

// Publics retrieves only name's public keys — signing and encryption —
// as public-only key pairs (same IDs), so no secret leaves the store.
func (ks *KeyStore) Publics(name string) (signingPub, encPub copcrypto.KeyPair, err error) {
	kp, err := ks.Load(name)
	if err != nil {
		return nil, nil, err
	}
	sigKey, ok := kp.Signing.PublicKey().(ed25519.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("keystore: %s: signing key is not Ed25519", name)
	}
	encKey, ok := kp.Encrypt.PublicKey().(*ecdh.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("keystore: %s: encryption key is not X25519", name)
	}
	return keys.NewPublicOnlyEd25519(sigKey, kp.Signing.ID()), keys.NewPublicOnlyX25519(encKey, kp.Encrypt.ID()), nil
}

// Exists reports whether name already has an IdentityKeyPair on record.
func (ks *KeyStore) Exists(name string) bool {
	storage := ks.mgr.Storage()
	return storage.Exists(signingID(name)) && storage.Exists(encryptID(name))
}
