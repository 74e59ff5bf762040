// Package cryptoinit wires the crypto package's generator, storage, and
// format constructors to their implementations in the crypto subpackages,
// avoiding an import cycle between crypto and crypto/keys|storage|formats.
// Anything that uses package crypto's wrapper functions must blank-import
// this package first.
package cryptoinit

import (
	"github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/formats"
	"github.com/chainofproduct/cop/crypto/keys"
	"github.com/chainofproduct/cop/crypto/storage"
)

func init() {
	crypto.SetKeyGenerators(
		func() (crypto.KeyPair, error) { return keys.GenerateEd25519KeyPair() },
		func() (crypto.KeyPair, error) { return keys.GenerateX25519KeyPair() },
	)

	crypto.SetStorageConstructors(
		func() crypto.KeyStorage { return storage.NewMemoryKeyStorage() },
	)

	crypto.SetFormatConstructors(
		func() crypto.KeyExporter { return formats.NewJWKExporter() },
		func() crypto.KeyImporter { return formats.NewJWKImporter() },
	)
}
