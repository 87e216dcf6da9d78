// Package service provides the encryption binding used by the secrets engine: AEAD
// ciphers (AES-256-GCM, ChaCha20-Poly1305), data-key wrapping with a master key chain or a
// KMS keeper, and an envelope Encryptor that binds every ciphertext to an
// EncryptionContext.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyWrapper protects data keys with a longer-lived key.
type KeyWrapper interface {
	// WrapKey encrypts a data key and returns the ID of the wrapping key with the result.
	WrapKey(ctx context.Context, dataKey []byte) (keyID string, wrapped []byte, err error)

	// UnwrapKey recovers a data key wrapped by WrapKey.
	UnwrapKey(ctx context.Context, keyID string, wrapped []byte) ([]byte, error)
}

// Encryptor encrypts payloads bound to an EncryptionContext. The context is not secret
// but is authenticated: Decrypt must fail unless it receives exactly the context that
// was passed to Encrypt.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte, ec cryptoDomain.EncryptionContext) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte, ec cryptoDomain.EncryptionContext) ([]byte, error)

	// EncryptString and DecryptString are the text-oriented variants; the ciphertext is
	// base64 encoded.
	EncryptString(ctx context.Context, plaintext string, ec cryptoDomain.EncryptionContext) (string, error)
	DecryptString(ctx context.Context, ciphertext string, ec cryptoDomain.EncryptionContext) (string, error)
}
