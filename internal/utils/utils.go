package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateUniqueID returns length random bytes as upper-case hex.
func GenerateUniqueID(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(bytes)), nil
}
