package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
	apperrors "github.com/allisson/secretsgroup/internal/errors"
)

// EnvelopeVersion is the format version written as the first byte of every envelope.
const EnvelopeVersion byte = 1

const dataKeySize = 32

// EnvelopeEncryptor implements Encryptor with envelope encryption.
//
// Every call generates a fresh 32-byte data key, seals the plaintext with it and wraps
// the data key with a KeyWrapper. The envelope layout is:
//
//	[version:1][algorithm:1][keyIDLen:2][keyID][wrappedLen:4][wrapped]
//	[contextDigest:32][nonceLen:1][nonce][ciphertext]
//
// Everything before the nonce is the header and is passed to the AEAD as associated
// data. The header holds the SHA-256 of the canonical context, not the context, so the
// envelope size is the same for every context. Decrypt rejects an envelope whose digest
// differs from the expected context's before unwrapping anything, and the AEAD tag
// rejects any other header change.
type EnvelopeEncryptor struct {
	wrapper     KeyWrapper
	aeadManager AEADManager
	alg         cryptoDomain.Algorithm
}

// NewEnvelopeEncryptor creates an EnvelopeEncryptor sealing payloads with alg.
func NewEnvelopeEncryptor(
	wrapper KeyWrapper,
	aeadManager AEADManager,
	alg cryptoDomain.Algorithm,
) *EnvelopeEncryptor {
	return &EnvelopeEncryptor{
		wrapper:     wrapper,
		aeadManager: aeadManager,
		alg:         alg,
	}
}

// Encrypt seals plaintext bound to ec.
func (e *EnvelopeEncryptor) Encrypt(
	ctx context.Context,
	plaintext []byte,
	ec cryptoDomain.EncryptionContext,
) ([]byte, error) {
	digest, err := ec.Digest()
	if err != nil {
		return nil, err
	}

	dataKey := make([]byte, dataKeySize)
	defer cryptoDomain.Zero(dataKey)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	keyID, wrapped, err := e.wrapper.WrapKey(ctx, dataKey)
	if err != nil {
		return nil, err
	}

	aead, err := e.aeadManager.CreateCipher(dataKey, e.alg)
	if err != nil {
		return nil, err
	}

	header, err := appendHeader(nil, e.alg, keyID, wrapped, digest)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, header)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}

	// The nonce follows the header and is covered by the AEAD itself.
	out := make([]byte, 0, len(header)+1+len(nonce)+len(ciphertext))
	out = append(out, header...)
	out = append(out, byte(len(nonce)))
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt opens an envelope produced by Encrypt. It fails with
// ErrEncryptionContextMismatch when the envelope was bound to a context other than ec,
// and with ErrDecryptionFailed when authentication fails.
func (e *EnvelopeEncryptor) Decrypt(
	ctx context.Context,
	ciphertext []byte,
	ec cryptoDomain.EncryptionContext,
) ([]byte, error) {
	expected, err := ec.Digest()
	if err != nil {
		return nil, err
	}

	env, err := parseEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(env.contextDigest, expected) {
		return nil, cryptoDomain.ErrEncryptionContextMismatch
	}

	dataKey, err := e.wrapper.UnwrapKey(ctx, env.keyID, env.wrapped)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dataKey)

	aead, err := e.aeadManager.CreateCipher(dataKey, env.alg)
	if err != nil {
		if errors.Is(err, cryptoDomain.ErrInvalidKeySize) {
			return nil, cryptoDomain.ErrDecryptionFailed
		}
		return nil, err
	}

	plaintext, err := aead.Decrypt(env.ciphertext, env.nonce, env.header)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString seals a string and returns the envelope as standard base64.
func (e *EnvelopeEncryptor) EncryptString(
	ctx context.Context,
	plaintext string,
	ec cryptoDomain.EncryptionContext,
) (string, error) {
	b, err := e.Encrypt(ctx, []byte(plaintext), ec)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecryptString is the inverse of EncryptString.
func (e *EnvelopeEncryptor) DecryptString(
	ctx context.Context,
	ciphertext string,
	ec cryptoDomain.EncryptionContext,
) (string, error) {
	b, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", cryptoDomain.ErrMalformedEnvelope)
	}
	plaintext, err := e.Decrypt(ctx, b, ec)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(plaintext)
	return string(plaintext), nil
}

func appendHeader(
	buf []byte,
	alg cryptoDomain.Algorithm,
	keyID string,
	wrapped, digest []byte,
) ([]byte, error) {
	algID := alg.ID()
	if algID == 0 {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	if len(keyID) > math.MaxUint16 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "key id too long")
	}
	if uint64(len(wrapped)) > math.MaxUint32 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "wrapped data key too large")
	}
	if len(digest) != cryptoDomain.DigestSize {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid context digest size")
	}

	buf = append(buf, EnvelopeVersion, algID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(keyID)))
	buf = append(buf, keyID...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(wrapped)))
	buf = append(buf, wrapped...)
	buf = append(buf, digest...)
	return buf, nil
}

type envelope struct {
	header        []byte
	alg           cryptoDomain.Algorithm
	keyID         string
	wrapped       []byte
	contextDigest []byte
	nonce         []byte
	ciphertext    []byte
}

func parseEnvelope(b []byte) (*envelope, error) {
	truncated := fmt.Errorf("%w: truncated envelope", cryptoDomain.ErrMalformedEnvelope)

	if len(b) < 2 {
		return nil, truncated
	}
	if b[0] != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedEnvelopeVersion, b[0])
	}
	alg, err := cryptoDomain.AlgorithmFromID(b[1])
	if err != nil {
		return nil, fmt.Errorf("%w: unknown algorithm id %d", cryptoDomain.ErrMalformedEnvelope, b[1])
	}

	env := &envelope{alg: alg}
	off := 2

	take := func(n int) ([]byte, bool) {
		if n < 0 || len(b)-off < n {
			return nil, false
		}
		v := b[off : off+n]
		off += n
		return v, true
	}

	lenBuf, ok := take(2)
	if !ok {
		return nil, truncated
	}
	keyID, ok := take(int(binary.BigEndian.Uint16(lenBuf)))
	if !ok {
		return nil, truncated
	}
	env.keyID = string(keyID)

	if lenBuf, ok = take(4); !ok {
		return nil, truncated
	}
	if env.wrapped, ok = take(int(binary.BigEndian.Uint32(lenBuf))); !ok {
		return nil, truncated
	}

	if env.contextDigest, ok = take(cryptoDomain.DigestSize); !ok {
		return nil, truncated
	}
	env.header = b[:off]

	if lenBuf, ok = take(1); !ok {
		return nil, truncated
	}
	if env.nonce, ok = take(int(lenBuf[0])); !ok {
		return nil, truncated
	}
	env.ciphertext = b[off:]
	return env, nil
}
