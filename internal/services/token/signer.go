package token

import (
	"encoding/hex"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs and verifies token payloads. Key management is the caller's.
type Signer interface {
	Sign(payload []byte) (string, error)
	Verify(payload []byte, signature string) bool
}

// HMACSigner signs with HMAC-SHA256. Verification compares in constant time.
type HMACSigner struct {
	key []byte
}

const minKeyLen = 32

func NewHMACSigner(key []byte) (*HMACSigner, error) {
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minKeyLen)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &HMACSigner{key: k}, nil
}

func (s *HMACSigner) Sign(payload []byte) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(string(payload), s.key)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

func (s *HMACSigner) Verify(payload []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return jwt.SigningMethodHS256.Verify(string(payload), sig, s.key) == nil
}
