package domain

import "context"

// KMSKeeper is the subset of *secrets.Keeper from gocloud.dev used to wrap data keys
// with a managed key service.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
