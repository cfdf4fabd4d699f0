package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const idSize = 32 // 256 bits

// GenerateID generates a cryptographically secure session ID.
func GenerateID() (string, error) {

	b := make([]byte, idSize)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil

}

// ValidID reports whether id has the shape GenerateID produces. Session ids
// are embedded in store keys, so separators and foreign encodings are refused.
func ValidID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(idSize) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}
