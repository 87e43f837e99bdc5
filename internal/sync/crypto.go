package sync

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id parameters (OWASP recommendations), adapted from password
// hashing to raw symmetric key derivation: no constant-time comparison is
// needed here since the output is a key, never compared against a stored
// hash.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32 // 256-bit key
	saltLen       = 16
)

// NewSalt generates a fresh random salt for key derivation.
func NewSalt() (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sync: generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// DeriveKey derives a 256-bit symmetric key from passphrase and a
// hex-encoded salt using Argon2id. The same passphrase and salt always
// derive the same key, on any machine.
func DeriveKey(passphrase, hexSalt string) (string, error) {
	salt, err := hex.DecodeString(hexSalt)
	if err != nil {
		return "", fmt.Errorf("sync: decode salt: %w", err)
	}
	key := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(key), nil
}

// Encrypt seals plaintext with XChaCha20-Poly1305 under hexKey, using a
// fresh random nonce, and returns nonce‖ciphertext‖tag.
func Encrypt(hexKey string, plaintext []byte) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("sync: decode key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sync: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sync: generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce‖ciphertext‖tag blob produced by Encrypt.
func Decrypt(hexKey string, blob []byte) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("sync: decode key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sync: init cipher: %w", err)
	}

	if len(blob) < aead.NonceSize() {
		return nil, fmt.Errorf("sync: ciphertext shorter than nonce")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("sync: decrypt: %w", err)
	}
	return plaintext, nil
}
