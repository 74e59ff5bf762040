package crypto

import "crypto/ed25519"

// Sign produces a 64-byte Ed25519 signature over message.
func Sign(signingSecret ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(signingSecret, message)
}

// Verify reports whether signature is a valid Ed25519 signature over
// message under signingPublic.
func Verify(signingPublic ed25519.PublicKey, message, signature []byte) bool {
	return ed25519.Verify(signingPublic, message, signature)
}
