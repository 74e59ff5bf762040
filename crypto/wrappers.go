package crypto

// This file provides wrapper functions implemented by crypto/keys, kept
// separate to avoid an import cycle (crypto/keys imports crypto for the
// KeyPair interface; crypto cannot import crypto/keys back).

var (
	// generateEd25519KeyPair is the implementation function for Ed25519 key generation
	generateEd25519KeyPair func() (KeyPair, error)

	// generateX25519KeyPair is the implementation function for X25519 key generation
	generateX25519KeyPair func() (KeyPair, error)

	// newJWKExporter is the implementation function for JWK exporter creation
	newJWKExporter func() KeyExporter

	// newJWKImporter is the implementation function for JWK importer creation
	newJWKImporter func() KeyImporter

	// newMemoryKeyStorage is the implementation function for in-memory key storage
	newMemoryKeyStorage func() KeyStorage
)

// SetKeyGenerators sets the key generation functions.
func SetKeyGenerators(ed25519Gen, x25519Gen func() (KeyPair, error)) {
	generateEd25519KeyPair = ed25519Gen
	generateX25519KeyPair = x25519Gen
}

// SetFormatConstructors sets the format constructor functions.
func SetFormatConstructors(jwkExp func() KeyExporter, jwkImp func() KeyImporter) {
	newJWKExporter = jwkExp
	newJWKImporter = jwkImp
}

// SetStorageConstructors sets the storage constructor functions.
func SetStorageConstructors(memoryStorage func() KeyStorage) {
	newMemoryKeyStorage = memoryStorage
}

// NewMemoryKeyStorage creates a new in-memory key storage backend.
func NewMemoryKeyStorage() KeyStorage {
	if newMemoryKeyStorage == nil {
		panic("crypto: memory storage constructor not initialized")
	}
	return newMemoryKeyStorage()
}

// GenerateEd25519KeyPair generates a new Ed25519 signing key pair.
func GenerateEd25519KeyPair() (KeyPair, error) {
	if generateEd25519KeyPair == nil {
		panic("crypto: Ed25519 key generator not initialized")
	}
	return generateEd25519KeyPair()
}

// GenerateX25519KeyPair generates a new X25519 encryption key pair.
func GenerateX25519KeyPair() (KeyPair, error) {
	if generateX25519KeyPair == nil {
		panic("crypto: X25519 key generator not initialized")
	}
	return generateX25519KeyPair()
}

// NewJWKExporter creates a new JWK exporter.
func NewJWKExporter() KeyExporter {
	if newJWKExporter == nil {
		panic("crypto: JWK exporter constructor not initialized")
	}
	return newJWKExporter()
}

// NewJWKImporter creates a new JWK importer.
func NewJWKImporter() KeyImporter {
	if newJWKImporter == nil {
		panic("crypto: JWK importer constructor not initialized")
	}
	return newJWKImporter()
}
