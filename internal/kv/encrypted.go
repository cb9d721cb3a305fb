package kv

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// encryptedPrefix marks values written by EncryptedStore.
	encryptedPrefix = "CFENC1:"

	// saltKey holds the base64 salt used to derive the value key.
	saltKey = "__kv_salt"

	saltLength = 32

	defaultArgon2Time    = 1
	defaultArgon2Memory  = 64 * 1024 // 64 MB
	defaultArgon2Threads = 4
	argon2KeyLen         = 32 // AES-256
)

// EncryptionConfig holds key derivation settings.
type EncryptionConfig struct {
	Passphrase string

	// Argon2Time is the number of Argon2 iterations. Default: 1
	Argon2Time uint32

	// Argon2Memory is the memory cost in KB. Default: 64 MB
	Argon2Memory uint32

	// Argon2Threads is the parallelism. Default: 4
	Argon2Threads uint8
}

// DefaultEncryptionConfig returns encryption settings with secure defaults.
func DefaultEncryptionConfig(passphrase string) *EncryptionConfig {
	return &EncryptionConfig{
		Passphrase:    passphrase,
		Argon2Time:    defaultArgon2Time,
		Argon2Memory:  defaultArgon2Memory,
		Argon2Threads: defaultArgon2Threads,
	}
}

// EncryptedStore wraps a Store and seals every value with AES-256-GCM under
// a key derived from a passphrase with Argon2id. The salt lives in the
// inner store so the key survives restarts.
type EncryptedStore struct {
	inner Store
	gcm   cipher.AEAD
}

// NewEncryptedStore derives the value key and wraps inner.
func NewEncryptedStore(ctx context.Context, inner Store, config *EncryptionConfig) (*EncryptedStore, error) {
	if config == nil || config.Passphrase == "" {
		return nil, fmt.Errorf("encryption config with passphrase required")
	}

	salt, err := loadOrCreateSalt(ctx, inner)
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey([]byte(config.Passphrase), salt,
		config.Argon2Time, config.Argon2Memory, config.Argon2Threads, argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &EncryptedStore{inner: inner, gcm: gcm}, nil
}

func loadOrCreateSalt(ctx context.Context, inner Store) ([]byte, error) {
	encoded, err := inner.Get(ctx, saltKey)
	if err == nil {
		salt, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil || len(salt) != saltLength {
			return nil, fmt.Errorf("stored salt is corrupt")
		}
		return salt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := inner.Set(ctx, saltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	return salt, nil
}

// Get decrypts the value stored under key. Values written before encryption
// was enabled are returned as-is.
func (s *EncryptedStore) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(raw, encryptedPrefix) {
		return raw, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", key, err)
	}

	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("encrypted value for %s too short", key)
	}

	plaintext, err := s.gcm.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("decryption failed (wrong passphrase or corrupted data): %w", err)
	}
	return string(plaintext), nil
}

// Set encrypts value and stores it under key. The key is bound as
// associated data so values cannot be swapped between keys.
func (s *EncryptedStore) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.gcm.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(ctx, key, encryptedPrefix+base64.StdEncoding.EncodeToString(sealed))
}

// Delete removes key from the inner store.
func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the inner store.
func (s *EncryptedStore) Close() error {
	return s.inner.Close()
}
