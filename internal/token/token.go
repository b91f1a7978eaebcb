// Package token generates the server auth token.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// EntropyBytes is the number of random bytes backing a generated token.
const EntropyBytes = 32

// Generate returns a fresh URL-safe auth token backed by EntropyBytes of
// cryptographically secure randomness.
func Generate() (string, error) {
	buf := make([]byte, EntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
