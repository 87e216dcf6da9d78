package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
	cryptoService "github.com/allisson/secretsgroup/internal/crypto/service"
)

// NewMasterKeyChain returns a chain of random 32-byte master keys named ids, with the
// first one active. The chain is zeroed when the test ends.
func NewMasterKeyChain(t *testing.T, ids ...string) *cryptoDomain.MasterKeyChain {
	t.Helper()
	require.NotEmpty(t, ids, "at least one master key id is required")

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err, "failed to generate master key")
		parts = append(parts, id+":"+base64.StdEncoding.EncodeToString(key))
	}

	chain, err := cryptoDomain.LoadMasterKeyChain(strings.Join(parts, ","), ids[0])
	require.NoError(t, err, "failed to load master key chain")
	t.Cleanup(chain.Close)
	return chain
}

// NewEncryptor returns an AES-GCM envelope encryptor wrapping data keys with a fresh
// master key chain.
func NewEncryptor(t *testing.T) *cryptoService.EnvelopeEncryptor {
	t.Helper()
	aeadManager := cryptoService.NewAEADManager()
	wrapper := cryptoService.NewMasterKeyWrapper(NewMasterKeyChain(t, "test-key"), aeadManager, cryptoDomain.AESGCM)
	return cryptoService.NewEnvelopeEncryptor(wrapper, aeadManager, cryptoDomain.AESGCM)
}

// NewLogger returns a logger that discards everything.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
