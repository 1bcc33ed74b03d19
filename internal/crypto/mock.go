package crypto

import (
	"context"
	"errors"
	"strings"
)

// MockCodec implements Codec for tests: a visible prefix instead of real
// encryption, plus switches to force either direction to fail.
type MockCodec struct {
	FailEncrypt bool
	FailDecrypt bool
}

func NewMockCodec() *MockCodec {
	return &MockCodec{}
}

func (m *MockCodec) Encrypt(_ context.Context, plaintext string) (string, error) {
	if m.FailEncrypt {
		return "", errors.New("mock encrypt failure")
	}
	return "mock:" + plaintext, nil
}

func (m *MockCodec) Decrypt(_ context.Context, ciphertext string) (string, error) {
	if m.FailDecrypt {
		return "", errors.New("mock decrypt failure")
	}
	return strings.TrimPrefix(ciphertext, "mock:"), nil
}
