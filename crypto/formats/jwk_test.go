package formats

import (
	"encoding/json"
	"testing"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWKExporter(t *testing.T) {
	exporter := NewJWKExporter()

	t.Run("ExportEd25519KeyPair", func(t *testing.T) {
		keyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.Export(keyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)
		assert.NotEmpty(t, exported)

		var jwk map[string]interface{}
		err = json.Unmarshal(exported, &jwk)
		require.NoError(t, err)

		assert.Equal(t, "OKP", jwk["kty"])
		assert.Equal(t, "Ed25519", jwk["crv"])
		assert.NotEmpty(t, jwk["x"])
		assert.NotEmpty(t, jwk["d"])
		assert.NotEmpty(t, jwk["kid"])
	})

	t.Run("ExportEd25519PublicKey", func(t *testing.T) {
		keyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.ExportPublic(keyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)
		assert.NotEmpty(t, exported)

		var jwk map[string]interface{}
		err = json.Unmarshal(exported, &jwk)
		require.NoError(t, err)

		assert.Equal(t, "OKP", jwk["kty"])
		assert.Equal(t, "Ed25519", jwk["crv"])
		assert.NotEmpty(t, jwk["x"])
		assert.Empty(t, jwk["d"])
		assert.NotEmpty(t, jwk["kid"])
	})

	t.Run("ExportX25519KeyPair", func(t *testing.T) {
		keyPair, err := keys.GenerateX25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.Export(keyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)
		assert.NotEmpty(t, exported)

		var jwk map[string]interface{}
		err = json.Unmarshal(exported, &jwk)
		require.NoError(t, err)

		assert.Equal(t, "OKP", jwk["kty"])
		assert.Equal(t, "X25519", jwk["crv"])
		assert.Equal(t, "enc", jwk["use"])
		assert.NotEmpty(t, jwk["x"])
		assert.NotEmpty(t, jwk["d"])
	})

	t.Run("ExportX25519PublicKey", func(t *testing.T) {
		keyPair, err := keys.GenerateX25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.ExportPublic(keyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)

		var jwk map[string]interface{}
		err = json.Unmarshal(exported, &jwk)
		require.NoError(t, err)

		assert.Equal(t, "OKP", jwk["kty"])
		assert.Equal(t, "X25519", jwk["crv"])
		assert.Empty(t, jwk["d"])
	})

	t.Run("ExportRejectsWrongFormat", func(t *testing.T) {
		keyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		_, err = exporter.Export(keyPair, copcrypto.KeyFormat("PEM"))
		assert.ErrorIs(t, err, copcrypto.ErrInvalidKeyFormat)
	})
}

func TestJWKImporter(t *testing.T) {
	exporter := NewJWKExporter()
	importer := NewJWKImporter()

	t.Run("ImportEd25519KeyPair", func(t *testing.T) {
		originalKeyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.Export(originalKeyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)

		importedKeyPair, err := importer.Import(exported, copcrypto.KeyFormatJWK)
		require.NoError(t, err)
		assert.NotNil(t, importedKeyPair)
		assert.Equal(t, copcrypto.KeyTypeEd25519, importedKeyPair.Type())

		message := []byte("test message")
		signature, err := importedKeyPair.Sign(message)
		require.NoError(t, err)

		err = originalKeyPair.Verify(message, signature)
		assert.NoError(t, err)
	})

	t.Run("ImportX25519KeyPair", func(t *testing.T) {
		originalKeyPair, err := keys.GenerateX25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.Export(originalKeyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)

		importedKeyPair, err := importer.Import(exported, copcrypto.KeyFormatJWK)
		require.NoError(t, err)
		assert.NotNil(t, importedKeyPair)
		assert.Equal(t, copcrypto.KeyTypeX25519, importedKeyPair.Type())
		assert.Equal(t, originalKeyPair.ID(), importedKeyPair.ID())
	})

	t.Run("ImportEd25519PublicKey", func(t *testing.T) {
		originalKeyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		exported, err := exporter.ExportPublic(originalKeyPair, copcrypto.KeyFormatJWK)
		require.NoError(t, err)

		importedPublicKey, err := importer.ImportPublic(exported, copcrypto.KeyFormatJWK)
		require.NoError(t, err)
		assert.NotNil(t, importedPublicKey)
	})

	t.Run("ImportInvalidJSON", func(t *testing.T) {
		invalidData := []byte("invalid json")
		_, err := importer.Import(invalidData, copcrypto.KeyFormatJWK)
		assert.Error(t, err)
	})

	t.Run("ImportMissingKeyType", func(t *testing.T) {
		invalidJWK := []byte(`{"x": "test"}`)
		_, err := importer.Import(invalidJWK, copcrypto.KeyFormatJWK)
		assert.Error(t, err)
	})

	t.Run("ImportUnsupportedCurve", func(t *testing.T) {
		invalidJWK := []byte(`{"kty": "OKP", "crv": "Ed448", "x": "test"}`)
		_, err := importer.Import(invalidJWK, copcrypto.KeyFormatJWK)
		assert.Error(t, err)
	})
}
