// Package crypto derives and hashes the authentication key shared
// between client and server. The password never leaves the client: the
// client derives an auth key with Argon2id and sends its SHA256 hash.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KB
	argonThreads = 4
	argonKeyLen  = 32

	// SaltSize is the salt length in bytes.
	SaltSize = 32
)

// GenerateSaltBase64 generates a cryptographically random salt and
// returns it base64 encoded.
func GenerateSaltBase64() (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// DeriveAuthKey derives the 32-byte auth key from the user's password
// and public salt with Argon2id. Deterministic for fixed inputs.
func DeriveAuthKey(password, username string, salt []byte) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt cannot be empty")
	}

	// username is folded into the input so equal passwords on
	// different accounts derive different keys
	input := []byte(username + ":" + password)
	key := argon2.IDKey(input, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return key, nil
}

// HashAuthKey hashes the auth key with SHA256 and returns it hex
// encoded. Used on both sides: the client sends the hash, the server
// stores and compares it.
func HashAuthKey(authKey []byte) (string, error) {
	if len(authKey) == 0 {
		return "", fmt.Errorf("auth key cannot be empty")
	}
	sum := sha256.Sum256(authKey)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyAuthKey checks whether authKey matches the stored hash.
func VerifyAuthKey(authKey []byte, hashedAuthKey string) error {
	computed, err := HashAuthKey(authKey)
	if err != nil {
		return fmt.Errorf("failed to compute auth key hash: %w", err)
	}
	if computed != hashedAuthKey {
		return fmt.Errorf("invalid auth key")
	}
	return nil
}

// HashToken hashes a refresh token for storage.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
