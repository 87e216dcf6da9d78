// Package mocks provides mock implementations of the crypto service interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

// MockEncryptor is a mock implementation of service.Encryptor.
type MockEncryptor struct {
	mock.Mock
}

// Encrypt mocks the Encrypt method of Encryptor.
func (m *MockEncryptor) Encrypt(
	ctx context.Context,
	plaintext []byte,
	ec cryptoDomain.EncryptionContext,
) ([]byte, error) {
	args := m.Called(ctx, plaintext, ec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Decrypt mocks the Decrypt method of Encryptor.
func (m *MockEncryptor) Decrypt(
	ctx context.Context,
	ciphertext []byte,
	ec cryptoDomain.EncryptionContext,
) ([]byte, error) {
	args := m.Called(ctx, ciphertext, ec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// EncryptString mocks the EncryptString method of Encryptor.
func (m *MockEncryptor) EncryptString(
	ctx context.Context,
	plaintext string,
	ec cryptoDomain.EncryptionContext,
) (string, error) {
	args := m.Called(ctx, plaintext, ec)
	return args.String(0), args.Error(1)
}

// DecryptString mocks the DecryptString method of Encryptor.
func (m *MockEncryptor) DecryptString(
	ctx context.Context,
	ciphertext string,
	ec cryptoDomain.EncryptionContext,
) (string, error) {
	args := m.Called(ctx, ciphertext, ec)
	return args.String(0), args.Error(1)
}
