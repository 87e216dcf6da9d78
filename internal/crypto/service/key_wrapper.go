package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

const (
	keyWrapInfoPrefix = "secretsgroup/key-wrap/"

	// nonceSize is shared by AES-256-GCM and ChaCha20-Poly1305.
	nonceSize = 12
)

// MasterKeyWrapper wraps data keys with the active key of a MasterKeyChain.
//
// Master keys never encrypt data keys directly: a dedicated wrapping key is derived from
// each master key with HKDF-SHA256, so the same master key can later serve other purposes
// without key reuse. The master key ID is authenticated as AAD; a wrapped key cannot be
// replayed under another ID of the chain.
type MasterKeyWrapper struct {
	chain       *cryptoDomain.MasterKeyChain
	aeadManager AEADManager
	alg         cryptoDomain.Algorithm
}

// NewMasterKeyWrapper creates a MasterKeyWrapper over chain using alg to seal data keys.
func NewMasterKeyWrapper(
	chain *cryptoDomain.MasterKeyChain,
	aeadManager AEADManager,
	alg cryptoDomain.Algorithm,
) *MasterKeyWrapper {
	return &MasterKeyWrapper{
		chain:       chain,
		aeadManager: aeadManager,
		alg:         alg,
	}
}

// WrapKey seals dataKey with the active master key. The result is [nonce][ciphertext].
func (w *MasterKeyWrapper) WrapKey(_ context.Context, dataKey []byte) (string, []byte, error) {
	keyID := w.chain.ActiveMasterKeyID()
	aead, err := w.cipherFor(keyID)
	if err != nil {
		return "", nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(dataKey, []byte(keyID))
	if err != nil {
		return "", nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	wrapped := make([]byte, 0, len(nonce)+len(ciphertext))
	wrapped = append(wrapped, nonce...)
	wrapped = append(wrapped, ciphertext...)
	return keyID, wrapped, nil
}

// UnwrapKey opens a data key sealed by WrapKey with the master key named keyID.
func (w *MasterKeyWrapper) UnwrapKey(_ context.Context, keyID string, wrapped []byte) ([]byte, error) {
	aead, err := w.cipherFor(keyID)
	if err != nil {
		return nil, err
	}

	if len(wrapped) < nonceSize {
		return nil, fmt.Errorf("%w: wrapped data key too short", cryptoDomain.ErrMalformedEnvelope)
	}

	dataKey, err := aead.Decrypt(wrapped[nonceSize:], wrapped[:nonceSize], []byte(keyID))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return dataKey, nil
}

func (w *MasterKeyWrapper) cipherFor(keyID string) (AEAD, error) {
	masterKey, ok := w.chain.Get(keyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrMasterKeyNotFound, keyID)
	}

	wrappingKey, err := deriveWrappingKey(masterKey.Key, keyID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(wrappingKey)

	return w.aeadManager.CreateCipher(wrappingKey, w.alg)
}

func deriveWrappingKey(masterKey []byte, keyID string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, masterKey, nil, []byte(keyWrapInfoPrefix+keyID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive wrapping key: %w", err)
	}
	return key, nil
}

// KeeperKeyWrapper wraps data keys with a KMS keeper from gocloud.dev/secrets.
// The key ID recorded in envelopes is the keeper URI, so a store can be opened only
// with the keeper that wrote it.
type KeeperKeyWrapper struct {
	keeper cryptoDomain.KMSKeeper
	keyID  string
}

// NewKeeperKeyWrapper creates a KeeperKeyWrapper. keyID identifies the keeper in
// envelope headers and is usually the keeper's key URI without credentials.
func NewKeeperKeyWrapper(keeper cryptoDomain.KMSKeeper, keyID string) *KeeperKeyWrapper {
	return &KeeperKeyWrapper{keeper: keeper, keyID: keyID}
}

// WrapKey encrypts dataKey with the keeper.
func (w *KeeperKeyWrapper) WrapKey(ctx context.Context, dataKey []byte) (string, []byte, error) {
	wrapped, err := w.keeper.Encrypt(ctx, dataKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to wrap data key with KMS: %w", err)
	}
	return w.keyID, wrapped, nil
}

// UnwrapKey decrypts a data key with the keeper. A key ID other than the keeper's is
// reported as ErrMasterKeyNotFound.
func (w *KeeperKeyWrapper) UnwrapKey(ctx context.Context, keyID string, wrapped []byte) ([]byte, error) {
	if keyID != w.keyID {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrMasterKeyNotFound, keyID)
	}
	dataKey, err := w.keeper.Decrypt(ctx, wrapped)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDecryptionFailed, err)
	}
	return dataKey, nil
}

// Close releases the underlying keeper.
func (w *KeeperKeyWrapper) Close() error {
	return w.keeper.Close()
}
