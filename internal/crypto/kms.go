package crypto

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Codec is the reversible encryption used for credential blobs at rest.
type Codec interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// KMSCodec implements Codec using AWS KMS.
type KMSCodec struct {
	client *kms.Client
	keyID  string
}

// NewKMSCodec creates a new KMSCodec.
// keyID can be a key ID, key ARN, or alias name (e.g., "alias/editbridge-credential-key").
func NewKMSCodec(client *kms.Client, keyID string) *KMSCodec {
	return &KMSCodec{
		client: client,
		keyID:  keyID,
	}
}

// Encrypt encrypts the plaintext using the configured KMS key.
// Returns base64 encoded ciphertext.
func (c *KMSCodec) Encrypt(ctx context.Context, plaintext string) (string, error) {
	input := &kms.EncryptInput{
		KeyId:     aws.String(c.keyID),
		Plaintext: []byte(plaintext),
	}

	result, err := c.client.Encrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credential blob: %w", err)
	}

	return base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

// Decrypt decrypts the base64 encoded ciphertext using KMS.
func (c *KMSCodec) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	input := &kms.DecryptInput{
		CiphertextBlob: decoded,
		KeyId:          aws.String(c.keyID),
	}

	result, err := c.client.Decrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential blob: %w", err)
	}

	return string(result.Plaintext), nil
}
