// Package auth generates the opaque bearer tokens backing dashboard sessions.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const tokenBytes = 32

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// NewToken returns a URL-safe token with 32 bytes of entropy. Tokens carry no
// claims; everything about a session lives server-side.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
