// Copyright (C) 2025 chainofproduct
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package keys

import (
	"crypto"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	copcrypto "github.com/chainofproduct/cop/crypto"
)

// X25519KeyPair holds an X25519 private key and its corresponding public key.
type X25519KeyPair struct {
	privateKey *ecdh.PrivateKey
	publicKey  *ecdh.PublicKey
	id         string
}

// GenerateX25519KeyPair generates a new X25519 key pair. Used both for
// long-lived party encryption keys and for the ephemeral sender keys a
// wrap operation creates per recipient.
func GenerateX25519KeyPair() (copcrypto.KeyPair, error) {
	privateKey, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate X25519 key: %w", err)
	}
	publicKey := privateKey.PublicKey()

	hash := sha256.Sum256(publicKey.Bytes())
	id := hex.EncodeToString(hash[:8])

	return &X25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

// PublicKey returns the public key.
func (kp *X25519KeyPair) PublicKey() crypto.PublicKey {
	return kp.publicKey
}

// PublicBytesKey returns the raw 32-byte public key.
func (kp *X25519KeyPair) PublicBytesKey() []byte {
	return kp.publicKey.Bytes()
}

// PrivateKey returns the private key.
func (kp *X25519KeyPair) PrivateKey() crypto.PrivateKey {
	return kp.privateKey
}

// Type returns the key type.
func (kp *X25519KeyPair) Type() copcrypto.KeyType {
	return copcrypto.KeyTypeX25519
}

// ID returns a unique identifier for this key pair.
func (kp *X25519KeyPair) ID() string {
	return kp.id
}

// Sign is unsupported: X25519 keys are for key agreement only.
func (kp *X25519KeyPair) Sign(message []byte) ([]byte, error) {
	return nil, copcrypto.ErrSignNotSupported
}

// Verify is unsupported: X25519 keys are for key agreement only.
func (kp *X25519KeyPair) Verify(message, signature []byte) error {
	return copcrypto.ErrVerifyNotSupported
}

// publicKeyOnlyX25519 wraps a bare X25519 public key as a copcrypto.KeyPair
// for callers (e.g. a PublicKeyDirectory) that only ever hold a peer's
// public encryption key, never its secret.
type publicKeyOnlyX25519 struct {
	publicKey *ecdh.PublicKey
	id        string
}

// NewPublicOnlyX25519 wraps a public X25519 key with no associated
// private key. PrivateKey returns nil; DeriveSharedSecret is
// unavailable since there is no secret to combine with a peer's key.
func NewPublicOnlyX25519(publicKey *ecdh.PublicKey, id string) copcrypto.KeyPair {
	if id == "" {
		hash := sha256.Sum256(publicKey.Bytes())
		id = hex.EncodeToString(hash[:8])
	}
	return &publicKeyOnlyX25519{publicKey: publicKey, id: id}
}

func (kp *publicKeyOnlyX25519) PublicKey() crypto.PublicKey   { return kp.publicKey }
func (kp *publicKeyOnlyX25519) PrivateKey() crypto.PrivateKey { return nil }
func (kp *publicKeyOnlyX25519) Type() copcrypto.KeyType       { return copcrypto.KeyTypeX25519 }
func (kp *publicKeyOnlyX25519) ID() string                    { return kp.id }
func (kp *publicKeyOnlyX25519) Sign(message []byte) ([]byte, error) {
	return nil, copcrypto.ErrSignNotSupported
}
func (kp *publicKeyOnlyX25519) Verify(message, signature []byte) error {
	return copcrypto.ErrVerifyNotSupported
}

// DeriveSharedSecret computes the raw X25519 ECDH shared secret between
// this key pair's private key and a peer's public key bytes. Callers
// must run the result through HKDF before using it as an AEAD key —
// this function does not hash or expand the DH output itself.
func (kp *X25519KeyPair) DeriveSharedSecret(peerPubBytes []byte) ([]byte, error) {
	curve := ecdh.X25519()
	peerPub, err := curve.NewPublicKey(peerPubBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peer public key: %w", err)
	}

	shared, err := kp.privateKey.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}
	return shared, nil
}
