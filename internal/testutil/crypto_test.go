package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

func TestNewMasterKeyChain(t *testing.T) {
	chain := NewMasterKeyChain(t, "k1", "k2")

	assert.Equal(t, "k1", chain.ActiveMasterKeyID())
	k1, ok := chain.Get("k1")
	require.True(t, ok)
	assert.Len(t, k1.Key, 32)
	_, ok = chain.Get("k2")
	assert.True(t, ok)
}

func TestNewEncryptor(t *testing.T) {
	enc := NewEncryptor(t)
	ec := cryptoDomain.EncryptionContext{"purpose": "test"}

	ct, err := enc.Encrypt(context.Background(), []byte("hello"), ec)
	require.NoError(t, err)

	pt, err := enc.Decrypt(context.Background(), ct, ec)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)
}
