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
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"

	copcrypto "github.com/chainofproduct/cop/crypto"
)

// NewEd25519KeyPair reconstructs a KeyPair from an existing Ed25519
// private key, used when importing a stored or JWK-encoded key.
func NewEd25519KeyPair(privateKey ed25519.PrivateKey, id string) (copcrypto.KeyPair, error) {
	publicKey := privateKey.Public().(ed25519.PublicKey)

	if id == "" {
		hash := sha256.Sum256(publicKey)
		id = hex.EncodeToString(hash[:8])
	}

	return &ed25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

// NewX25519KeyPair reconstructs a KeyPair from an existing X25519
// private key, used when importing a stored or JWK-encoded key.
func NewX25519KeyPair(privateKey *ecdh.PrivateKey, id string) (copcrypto.KeyPair, error) {
	publicKey := privateKey.PublicKey()

	if id == "" {
		pubKeyBytes := publicKey.Bytes()
		hash := sha256.Sum256(pubKeyBytes)
		id = hex.EncodeToString(hash[:8])
	}

	return &X25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}
