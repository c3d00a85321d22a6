package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// ShareTokenBytes is the entropy of a share token: 256 bits.
const ShareTokenBytes = 32

// GenerateShareToken returns a URL-safe share token from crypto/rand.
func GenerateShareToken() (string, error) {
	b := make([]byte, ShareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
