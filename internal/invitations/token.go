package invitations

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes yields 256 bits of entropy, well above the 128-bit floor that
// makes brute-force token guessing impractical.
const tokenBytes = 32

// generateToken produces a URL-safe invitation token with no padding.
// Uniqueness is enforced by the store's unique index, not here.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
