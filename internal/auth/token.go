// Package auth issues and verifies API tokens for the HTTP surface.
// Raw tokens are shown once at creation; only bcrypt hashes are stored,
// with a short prefix kept for lookup.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"

	enginerr "verdict/internal/errors"
)

const (
	// KeyIDPrefix marks API key identifiers
	KeyIDPrefix = "vd_key_"

	// TokenPrefix marks secret tokens
	TokenPrefix = "vd_sk_"

	// TokenPrefixLength is how many characters of the secret are stored
	// in clear for lookup
	TokenPrefixLength = 8

	keyIDBytes = 8
	tokenBytes = 32

	bcryptCost = 12
)

// GenerateKeyID returns a new key identifier, vd_key_<16 hex chars>
func GenerateKeyID() (string, error) {
	buf := make([]byte, keyIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", enginerr.New(enginerr.InternalError, "failed to generate key ID", err)
	}
	return KeyIDPrefix + hex.EncodeToString(buf), nil
}

// GenerateToken returns a fresh raw token and its lookup prefix
func GenerateToken() (token, prefix string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", enginerr.New(enginerr.InternalError, "failed to generate token", err)
	}
	secret := hex.EncodeToString(buf)
	return TokenPrefix + secret, secret[:TokenPrefixLength], nil
}

// HashToken bcrypt-hashes the secret part of a token
func HashToken(token string) (string, error) {
	secret := strings.TrimPrefix(token, TokenPrefix)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", enginerr.New(enginerr.InternalError, "failed to hash token", err)
	}
	return string(hash), nil
}

// VerifyToken reports whether token matches the stored hash
func VerifyToken(token, hash string) bool {
	secret := strings.TrimPrefix(token, TokenPrefix)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// ExtractPrefix returns the lookup prefix of a raw token
func ExtractPrefix(token string) string {
	secret := strings.TrimPrefix(token, TokenPrefix)
	if len(secret) < TokenPrefixLength {
		return secret
	}
	return secret[:TokenPrefixLength]
}

// ValidFormat reports whether token is shaped like one of ours
func ValidFormat(token string) bool {
	secret := strings.TrimPrefix(token, TokenPrefix)
	if !strings.HasPrefix(token, TokenPrefix) || len(secret) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// Mask renders a token safe for display, keeping only the prefix
func Mask(token string) string {
	keep := len(TokenPrefix) + TokenPrefixLength
	if len(token) < keep {
		return "****"
	}
	return token[:keep] + "****"
}
