// Package auth provides credential primitives: password hashing, API key
// generation and verification, and session token signing.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Key format: mety_{env}_{lookup}_{secret}
// Example: mety_live_7a9x3b2c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b...
//
// The lookup component is not secret; it exists so the guard can resolve a
// candidate record with a single indexed read. The stored hash covers the
// full key, so the lookup alone proves nothing.
const (
	KeyLookupLen = 8  // Lookup length (hex encoded 4 bytes)
	KeySecretLen = 64 // Secret length (hex encoded 32 bytes)
)

// Environment indicators for key prefix.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	// keyFormatRegex validates the key format.
	keyFormatRegex = regexp.MustCompile(`^mety_(live|test)_([a-f0-9]{8})_([a-f0-9]{64})$`)
)

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // Full key (show once only)
	Hash      string // SHA-256 hex digest for storage
	Lookup    string // 8-char lookup component
}

// GenerateAPIKey creates a new API key for the specified environment.
// Returns the plaintext key (to show once), hash (to store), and the
// lookup component (for indexed retrieval).
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive // Default to live
	}

	lookupBytes := make([]byte, KeyLookupLen/2)
	if _, err := rand.Read(lookupBytes); err != nil {
		return nil, fmt.Errorf("generate lookup: %w", err)
	}
	lookup := hex.EncodeToString(lookupBytes)

	secretBytes := make([]byte, KeySecretLen/2)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	plaintext := fmt.Sprintf("mety_%s_%s_%s", env, lookup, secret)

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      HashAPIKey(plaintext),
		Lookup:    lookup,
	}, nil
}

// ParsedKey contains the parsed parts of an API key.
type ParsedKey struct {
	Env    string
	Lookup string
	Secret string
}

// ParseAPIKey extracts the components from a plaintext API key.
// Returns an error if the format is invalid.
func ParseAPIKey(key string) (*ParsedKey, error) {
	matches := keyFormatRegex.FindStringSubmatch(key)
	if matches == nil {
		return nil, ErrInvalidKeyFormat
	}

	return &ParsedKey{
		Env:    matches[1],
		Lookup: matches[2],
		Secret: matches[3],
	}, nil
}

// HashAPIKey returns the SHA-256 hex digest of the full plaintext key.
// This is the only form in which a key is ever persisted.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// VerifyAPIKey recomputes the hash of the presented key and compares it
// against the stored digest in constant time.
func VerifyAPIKey(presented, storedHash string) bool {
	computed := HashAPIKey(presented)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
