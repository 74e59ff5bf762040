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

package crypto

import (
	"fmt"
)

// Manager provides centralized management of cryptographic key material:
// generation, storage, and JWK import/export, independent of any one
// party's storage backend.
type Manager struct {
	storage KeyStorage
}

// NewManager creates a new crypto manager backed by in-memory storage.
func NewManager() *Manager {
	return &Manager{
		storage: NewMemoryKeyStorage(),
	}
}

// NewManagerWithStorage creates a new crypto manager backed by the
// given storage, for callers (keystore, in particular) that need a
// file-backed or otherwise non-default backend rather than NewManager's
// hardcoded in-memory one.
func NewManagerWithStorage(storage KeyStorage) *Manager {
	return &Manager{storage: storage}
}

// SetStorage sets the key storage backend.
func (m *Manager) SetStorage(storage KeyStorage) {
	m.storage = storage
}

// Storage returns the manager's underlying key storage backend, for
// callers that need party-scoped IDs the Store/Load/Delete/List
// keyed-by-KeyPair.ID() methods below don't fit.
func (m *Manager) Storage() KeyStorage {
	return m.storage
}

// GenerateKeyPair generates a new key pair of the specified type.
func (m *Manager) GenerateKeyPair(keyType KeyType) (KeyPair, error) {
	switch keyType {
	case KeyTypeEd25519:
		return GenerateEd25519KeyPair()
	case KeyTypeX25519:
		return GenerateX25519KeyPair()
	default:
		return nil, fmt.Errorf("unsupported key type: %s", keyType)
	}
}

// StoreKeyPair stores a key pair.
func (m *Manager) StoreKeyPair(keyPair KeyPair) error {
	return m.storage.Store(keyPair.ID(), keyPair)
}

// LoadKeyPair loads a key pair by ID.
func (m *Manager) LoadKeyPair(id string) (KeyPair, error) {
	return m.storage.Load(id)
}

// DeleteKeyPair deletes a key pair by ID.
func (m *Manager) DeleteKeyPair(id string) error {
	return m.storage.Delete(id)
}

// ListKeyPairs lists all stored key pair IDs.
func (m *Manager) ListKeyPairs() ([]string, error) {
	return m.storage.List()
}

// ExportKeyPair exports a key pair in the specified format.
func (m *Manager) ExportKeyPair(keyPair KeyPair, format KeyFormat) ([]byte, error) {
	switch format {
	case KeyFormatJWK:
		return NewJWKExporter().Export(keyPair, format)
	default:
		return nil, fmt.Errorf("unsupported key format: %s", format)
	}
}

// ImportKeyPair imports a key pair from the specified format.
func (m *Manager) ImportKeyPair(data []byte, format KeyFormat) (KeyPair, error) {
	switch format {
	case KeyFormatJWK:
		return NewJWKImporter().Import(data, format)
	default:
		return nil, fmt.Errorf("unsupported key format: %s", format)
	}
}
