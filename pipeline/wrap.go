package pipeline

import (
	"crypto/ecdh"
	"fmt"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/keys"
	"github.com/chainofproduct/cop/envelope"
)

const wrapInfo = "cop/wrap/v1"

// x25519PubBytes extracts the raw 32-byte public key from a KeyPair whose
// concrete public key is an *ecdh.PublicKey. Every X25519 KeyPair this
// module produces (long-lived or ephemeral) satisfies that.
func x25519PubBytes(kp copcrypto.KeyPair) ([]byte, error) {
	pub, ok := kp.PublicKey().(*ecdh.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key pair public key is not X25519", ErrKeyStoreFailure)
	}
	return pub.Bytes(), nil
}

// wrap seals key (a content key or group key) for recipientEncPub using a
// fresh ephemeral X25519 key pair, per the wrap recipe:
//
//	shared   = ECDH(ephemeral_secret, recipient_enc_pub)
//	wrap_key = hkdf(ikm=shared, salt=e_pk||recipient_enc_pub, info="cop/wrap/v1", length=32)
//	ciphertext = seal(wrap_key, nonce, key, aad=recipient_enc_pub)
func wrap(key []byte, recipientName string, recipientEncPub copcrypto.KeyPair) (*envelope.WrappedKey, error) {
	ephemeral, err := keys.GenerateX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessFailure, err)
	}
	ephemeralX, ok := ephemeral.(*keys.X25519KeyPair)
	if !ok {
		return nil, fmt.Errorf("%w: ephemeral key pair has unexpected concrete type", ErrKeyStoreFailure)
	}

	ephemeralPub, err := x25519PubBytes(ephemeralX)
	if err != nil {
		return nil, err
	}
	recipientPub, err := x25519PubBytes(recipientEncPub)
	if err != nil {
		return nil, err
	}

	shared, err := ephemeralX.DeriveSharedSecret(recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	defer copcrypto.ZeroBytes(shared)

	salt := append(append([]byte{}, ephemeralPub...), recipientPub...)
	wrapKey, err := copcrypto.HKDF(shared, salt, []byte(wrapInfo), copcrypto.KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	defer copcrypto.ZeroBytes(wrapKey)

	nonce, err := copcrypto.RandomBytes(copcrypto.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessFailure, err)
	}

	ciphertext, err := copcrypto.SealAEAD(wrapKey, nonce, key, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}

	return &envelope.WrappedKey{
		Name:         recipientName,
		EphemeralPub: ephemeralPub,
		Nonce:        nonce,
		Ciphertext:   ciphertext,
	}, nil
}

// unwrap recovers the key sealed by wrap, given the recipient's own
// encryption key pair (which must hold the private key).
func unwrap(w *envelope.WrappedKey, recipientEncKeyPair copcrypto.KeyPair) ([]byte, error) {
	recipientX, ok := recipientEncKeyPair.(*keys.X25519KeyPair)
	if !ok {
		return nil, fmt.Errorf("%w: recipient key pair has unexpected concrete type", ErrKeyStoreFailure)
	}

	recipientPub, err := x25519PubBytes(recipientX)
	if err != nil {
		return nil, err
	}

	shared, err := recipientX.DeriveSharedSecret(w.EphemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotARecipient, err)
	}
	defer copcrypto.ZeroBytes(shared)

	salt := append(append([]byte{}, w.EphemeralPub...), recipientPub...)
	wrapKey, err := copcrypto.HKDF(shared, salt, []byte(wrapInfo), copcrypto.KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	defer copcrypto.ZeroBytes(wrapKey)

	plaintext, err := copcrypto.OpenAEAD(wrapKey, w.Nonce, w.Ciphertext, recipientPub)
	if err != nil {
		return nil, ErrNotARecipient
	}
	return plaintext, nil
}
