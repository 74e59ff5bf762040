package storage

import (
	"fmt"
	"testing"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeyStorage(t *testing.T) {
	storage := NewMemoryKeyStorage()

	t.Run("StoreAndLoadKeyPair", func(t *testing.T) {
		keyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		err = storage.Store("test-key", keyPair)
		require.NoError(t, err)

		loadedKeyPair, err := storage.Load("test-key")
		require.NoError(t, err)
		assert.NotNil(t, loadedKeyPair)
		assert.Equal(t, keyPair.ID(), loadedKeyPair.ID())
		assert.Equal(t, keyPair.Type(), loadedKeyPair.Type())

		message := []byte("test message")
		signature, err := loadedKeyPair.Sign(message)
		require.NoError(t, err)

		err = keyPair.Verify(message, signature)
		assert.NoError(t, err)
	})

	t.Run("LoadNonExistentKey", func(t *testing.T) {
		_, err := storage.Load("non-existent")
		assert.Error(t, err)
		assert.Equal(t, copcrypto.ErrKeyNotFound, err)
	})

	t.Run("OverwriteExistingKey", func(t *testing.T) {
		keyPair1, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)
		keyPair2, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		err = storage.Store("overwrite-test", keyPair1)
		require.NoError(t, err)

		err = storage.Store("overwrite-test", keyPair2)
		require.NoError(t, err)

		loadedKeyPair, err := storage.Load("overwrite-test")
		require.NoError(t, err)
		assert.Equal(t, keyPair2.ID(), loadedKeyPair.ID())
	})

	t.Run("DeleteKey", func(t *testing.T) {
		keyPair, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		err = storage.Store("delete-test", keyPair)
		require.NoError(t, err)

		assert.True(t, storage.Exists("delete-test"))

		err = storage.Delete("delete-test")
		require.NoError(t, err)

		assert.False(t, storage.Exists("delete-test"))

		_, err = storage.Load("delete-test")
		assert.Error(t, err)
		assert.Equal(t, copcrypto.ErrKeyNotFound, err)
	})

	t.Run("DeleteNonExistentKey", func(t *testing.T) {
		err := storage.Delete("non-existent")
		assert.Error(t, err)
		assert.Equal(t, copcrypto.ErrKeyNotFound, err)
	})

	t.Run("ListKeys", func(t *testing.T) {
		storage = NewMemoryKeyStorage()

		keyPair1, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)
		keyPair2, err := keys.GenerateX25519KeyPair()
		require.NoError(t, err)
		keyPair3, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)

		err = storage.Store("key1", keyPair1)
		require.NoError(t, err)
		err = storage.Store("key2", keyPair2)
		require.NoError(t, err)
		err = storage.Store("key3", keyPair3)
		require.NoError(t, err)

		ids, err := storage.List()
		require.NoError(t, err)
		assert.Len(t, ids, 3)
		assert.Contains(t, ids, "key1")
		assert.Contains(t, ids, "key2")
		assert.Contains(t, ids, "key3")
	})

	t.Run("EmptyStorageList", func(t *testing.T) {
		emptyStorage := NewMemoryKeyStorage()
		ids, err := emptyStorage.List()
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		storage := NewMemoryKeyStorage()
		done := make(chan bool)

		for i := 0; i < 10; i++ {
			go func(id int) {
				keyPair, _ := keys.GenerateEd25519KeyPair()
				storage.Store(fmt.Sprintf("concurrent-%d", id), keyPair)
				done <- true
			}(i)
		}

		for i := 0; i < 10; i++ {
			<-done
		}

		ids, err := storage.List()
		require.NoError(t, err)
		assert.Len(t, ids, 10)
	})
}
