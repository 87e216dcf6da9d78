package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/secretsgroup/internal/errors"
)

func TestEncryptionContext_Canonical(t *testing.T) {
	t.Run("Success_SortedAndDeterministic", func(t *testing.T) {
		a := EncryptionContext{"b": "2", "a": "1", "c": ""}
		b := EncryptionContext{"c": "", "a": "1", "b": "2"}

		ca, err := a.Canonical()
		require.NoError(t, err)
		cb, err := b.Canonical()
		require.NoError(t, err)

		assert.Equal(t, ca, cb)
		assert.Equal(t, []byte{0, 3, 0, 1, 'a', 0, 1, '1', 0, 1, 'b', 0, 1, '2', 0, 1, 'c', 0, 0}, ca)
	})

	t.Run("Success_Empty", func(t *testing.T) {
		c, err := EncryptionContext{}.Canonical()
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0}, c)
	})
}

func TestEncryptionContext_Digest(t *testing.T) {
	t.Run("Success_OrderIndependent", func(t *testing.T) {
		a, err := EncryptionContext{"version": "1", "state": "ENABLED"}.Digest()
		require.NoError(t, err)
		b, err := EncryptionContext{"state": "ENABLED", "version": "1"}.Digest()
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, DigestSize)
	})

	t.Run("Success_FixedWidth", func(t *testing.T) {
		short, err := EncryptionContext{"secret_identifier": "a"}.Digest()
		require.NoError(t, err)
		long, err := EncryptionContext{"secret_identifier": strings.Repeat("b", 128)}.Digest()
		require.NoError(t, err)

		assert.Len(t, short, DigestSize)
		assert.Len(t, long, DigestSize)
		assert.NotEqual(t, short, long)
	})

	t.Run("Success_DistinguishesValues", func(t *testing.T) {
		v1, err := EncryptionContext{"version": "1"}.Digest()
		require.NoError(t, err)
		v2, err := EncryptionContext{"version": "2"}.Digest()
		require.NoError(t, err)
		extra, err := EncryptionContext{"version": "1", "state": "ENABLED"}.Digest()
		require.NoError(t, err)

		assert.NotEqual(t, v1, v2)
		assert.NotEqual(t, v1, extra)
	})

	t.Run("Error_EntryTooLong", func(t *testing.T) {
		_, err := EncryptionContext{"k": strings.Repeat("x", 1<<16)}.Digest()
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})
}

func TestAlgorithm_ID(t *testing.T) {
	for _, alg := range []Algorithm{AESGCM, ChaCha20} {
		got, err := AlgorithmFromID(alg.ID())
		require.NoError(t, err)
		assert.Equal(t, alg, got)
	}

	_, err := AlgorithmFromID(0)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	assert.Equal(t, byte(0), Algorithm("rot13").ID())
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("chacha20-poly1305")
	require.NoError(t, err)
	assert.Equal(t, ChaCha20, alg)

	_, err = ParseAlgorithm("des")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
