package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// saltLength is the number of random salt bytes per credential.
	saltLength = 16
	// pbkdf2Iterations is the PBKDF2-HMAC-SHA256 work factor.
	pbkdf2Iterations = 100000
	// keyLength is the derived key length in bytes.
	keyLength = 32
)

// PasswordHasher derives and verifies salted password hashes.
type PasswordHasher struct{}

// NewPasswordHasher creates a new password hasher.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{}
}

// Hash derives a key from password under a fresh random salt.
func (h *PasswordHasher) Hash(password string) (salt, key []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	key = pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLength, sha256.New)
	return salt, key, nil
}

// Verify reports whether password matches the stored salt and key.
func (h *PasswordHasher) Verify(password string, salt, key []byte) bool {
	if len(salt) == 0 || len(key) == 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, len(key), sha256.New)
	return hmac.Equal(derived, key)
}
