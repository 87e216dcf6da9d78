package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
	apperrors "github.com/allisson/secretsgroup/internal/errors"
)

// MockKMSKeeper is a mock implementation of cryptoDomain.KMSKeeper.
type MockKMSKeeper struct {
	mock.Mock
}

func (m *MockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestChain(t *testing.T, active string, ids ...string) *cryptoDomain.MasterKeyChain {
	t.Helper()
	raw := ""
	for i, id := range ids {
		if i > 0 {
			raw += ","
		}
		raw += id + ":" + base64.StdEncoding.EncodeToString(randomKey(t))
	}
	chain, err := cryptoDomain.LoadMasterKeyChain(raw, active)
	require.NoError(t, err)
	t.Cleanup(chain.Close)
	return chain
}

func TestMasterKeyWrapper(t *testing.T) {
	ctx := context.Background()

	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			chain := newTestChain(t, "k2", "k1", "k2")
			wrapper := NewMasterKeyWrapper(chain, NewAEADManager(), alg)
			dataKey := randomKey(t)

			t.Run("Success_WrapUnwrap", func(t *testing.T) {
				keyID, wrapped, err := wrapper.WrapKey(ctx, dataKey)
				require.NoError(t, err)
				assert.Equal(t, "k2", keyID)
				assert.Len(t, wrapped, 12+32+16)

				unwrapped, err := wrapper.UnwrapKey(ctx, keyID, wrapped)
				require.NoError(t, err)
				assert.Equal(t, dataKey, unwrapped)
			})

			t.Run("Error_WrongKeyID", func(t *testing.T) {
				_, wrapped, err := wrapper.WrapKey(ctx, dataKey)
				require.NoError(t, err)

				unwrapped, err := wrapper.UnwrapKey(ctx, "k1", wrapped)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
				assert.ErrorIs(t, err, apperrors.ErrIntegrity)
				assert.Nil(t, unwrapped)
			})

			t.Run("Error_UnknownKeyID", func(t *testing.T) {
				unwrapped, err := wrapper.UnwrapKey(ctx, "k9", make([]byte, 60))
				assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotFound)
				assert.Nil(t, unwrapped)
			})

			t.Run("Error_TooShort", func(t *testing.T) {
				unwrapped, err := wrapper.UnwrapKey(ctx, "k2", []byte{1, 2, 3})
				assert.ErrorIs(t, err, cryptoDomain.ErrMalformedEnvelope)
				assert.Nil(t, unwrapped)
			})
		})
	}

	t.Run("Success_RotationKeepsOldKeys", func(t *testing.T) {
		raw := "old:" + base64.StdEncoding.EncodeToString(randomKey(t))
		oldChain, err := cryptoDomain.LoadMasterKeyChain(raw, "old")
		require.NoError(t, err)
		defer oldChain.Close()

		keyID, wrapped, err := NewMasterKeyWrapper(oldChain, NewAEADManager(), cryptoDomain.AESGCM).
			WrapKey(ctx, []byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)

		newKey := base64.StdEncoding.EncodeToString(randomKey(t))
		rotated, err := cryptoDomain.LoadMasterKeyChain(raw+",new:"+newKey, "new")
		require.NoError(t, err)
		defer rotated.Close()

		unwrapped, err := NewMasterKeyWrapper(rotated, NewAEADManager(), cryptoDomain.AESGCM).
			UnwrapKey(ctx, keyID, wrapped)
		require.NoError(t, err)
		assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), unwrapped)
	})
}

func TestDeriveWrappingKey(t *testing.T) {
	master := randomKey(t)

	k1, err := deriveWrappingKey(master, "a")
	require.NoError(t, err)
	k1Again, err := deriveWrappingKey(master, "a")
	require.NoError(t, err)
	k2, err := deriveWrappingKey(master, "b")
	require.NoError(t, err)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k1Again)
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, master, k1)
}

func TestKeeperKeyWrapper(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_LocalSecrets", func(t *testing.T) {
		wrapper := NewKeeperKeyWrapper(openLocalKeeper(t), "base64key://")
		dataKey := randomKey(t)

		keyID, wrapped, err := wrapper.WrapKey(ctx, dataKey)
		require.NoError(t, err)
		assert.Equal(t, "base64key://", keyID)
		assert.NotEqual(t, dataKey, wrapped)

		unwrapped, err := wrapper.UnwrapKey(ctx, keyID, wrapped)
		require.NoError(t, err)
		assert.Equal(t, dataKey, unwrapped)
	})

	t.Run("Error_OtherKeeper", func(t *testing.T) {
		w1 := NewKeeperKeyWrapper(openLocalKeeper(t), "base64key://")
		w2 := NewKeeperKeyWrapper(openLocalKeeper(t), "base64key://")

		keyID, wrapped, err := w1.WrapKey(ctx, randomKey(t))
		require.NoError(t, err)

		unwrapped, err := w2.UnwrapKey(ctx, keyID, wrapped)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Nil(t, unwrapped)
	})

	t.Run("Error_KeyIDMismatch", func(t *testing.T) {
		keeper := &MockKMSKeeper{}
		wrapper := NewKeeperKeyWrapper(keeper, "awskms://alias/a")

		unwrapped, err := wrapper.UnwrapKey(ctx, "awskms://alias/b", []byte("x"))
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotFound)
		assert.Nil(t, unwrapped)
		keeper.AssertNotCalled(t, "Decrypt", mock.Anything, mock.Anything)
	})

	t.Run("Error_EncryptFails", func(t *testing.T) {
		keeper := &MockKMSKeeper{}
		keeper.On("Encrypt", ctx, mock.Anything).Return(nil, errors.New("throttled"))
		wrapper := NewKeeperKeyWrapper(keeper, "awskms://alias/a")

		_, _, err := wrapper.WrapKey(ctx, randomKey(t))
		assert.ErrorContains(t, err, "throttled")
		keeper.AssertExpectations(t)
	})

	t.Run("Error_ContextCanceledIsNotIntegrity", func(t *testing.T) {
		keeper := &MockKMSKeeper{}
		keeper.On("Decrypt", ctx, []byte("x")).Return(nil, context.Canceled)
		wrapper := NewKeeperKeyWrapper(keeper, "awskms://alias/a")

		_, err := wrapper.UnwrapKey(ctx, "awskms://alias/a", []byte("x"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, apperrors.ErrIntegrity)
	})

	t.Run("Success_Close", func(t *testing.T) {
		keeper := &MockKMSKeeper{}
		keeper.On("Close").Return(nil)
		assert.NoError(t, NewKeeperKeyWrapper(keeper, "k").Close())
		keeper.AssertExpectations(t)
	})
}
