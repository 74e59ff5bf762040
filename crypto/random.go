package crypto

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes returns n cryptographically secure random bytes. Nonces
// and ephemeral secrets are always generated this way — never derived
// deterministically from content or key (spec §4.3).
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessFailure, err)
	}
	return b, nil
}
