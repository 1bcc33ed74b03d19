package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// LocalCodec implements Codec with AES-256-GCM and a process-local key,
// for dev mode where no KMS is available. The key material is hashed to
// 32 bytes so any non-empty secret works.
type LocalCodec struct {
	key [32]byte
}

// NewLocalCodec derives an AES-256 key from the given secret.
func NewLocalCodec(secret string) (*LocalCodec, error) {
	if secret == "" {
		return nil, errors.New("local codec secret must not be empty")
	}
	return &LocalCodec{key: sha256.Sum256([]byte(secret))}, nil
}

// Encrypt seals the plaintext with a fresh 12-byte nonce.
// The nonce is prepended to the ciphertext and the whole blob base64 encoded.
func (c *LocalCodec) Encrypt(_ context.Context, plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *LocalCodec) Decrypt(_ context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(raw) < aesgcm.NonceSize() {
		return "", errors.New("ciphertext shorter than nonce")
	}
	nonce, sealed := raw[:aesgcm.NonceSize()], raw[aesgcm.NonceSize():]

	plain, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential blob: %w", err)
	}
	return string(plain), nil
}
