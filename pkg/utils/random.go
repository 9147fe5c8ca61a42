package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateToken returns 32 random bytes hex-encoded, for invite tokens.
func GenerateToken() (string, error) {
	return randomHex(32)
}

// GeneratePassword returns a random password for accounts provisioned from an invite.
func GeneratePassword() (string, error) {
	return randomHex(10)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
