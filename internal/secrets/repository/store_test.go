package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// contractStore is the store surface every backend implements.
type contractStore interface {
	Create(ctx context.Context, entry domain.RawSecretEntry) error
	Update(ctx context.Context, entry, previous domain.RawSecretEntry) error
	Delete(ctx context.Context, id domain.SecretIdentifier) error
	KeySet(ctx context.Context) ([]domain.SecretIdentifier, error)
	Stream() query.Stream
	Close(ctx context.Context) error
}

func rawEntry(id string, version uint64) domain.RawSecretEntry {
	return domain.RawSecretEntry{
		SecretIdentifier: domain.SecretIdentifier(id),
		Version:          version,
		State:            domain.StateEnabled,
		EncryptedPayload: []byte(fmt.Sprintf("payload-%s-%d", id, version)),
	}
}

func unixTime(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

// runStoreContract exercises the behavior shared by every backend.
func runStoreContract(t *testing.T, open func(t *testing.T) contractStore) {
	ctx := context.Background()

	t.Run("Success_CreateAndStream", func(t *testing.T) {
		s := open(t)
		windowed := rawEntry("db-password", 2)
		windowed.NotBefore = unixTime(1_700_000_000)
		windowed.NotAfter = unixTime(1_800_000_000)

		require.NoError(t, s.Create(ctx, rawEntry("db-password", 1)))
		require.NoError(t, s.Create(ctx, windowed))
		require.NoError(t, s.Create(ctx, rawEntry("api-key", 1)))

		all, err := s.Stream().ToList(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, domain.SecretIdentifier("api-key"), all[0].SecretIdentifier)
		assert.Equal(t, uint64(1), all[1].Version)
		assert.True(t, all[2].Equal(windowed))

		ids, err := s.KeySet(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.SecretIdentifier{"api-key", "db-password"}, ids)
	})

	t.Run("Success_KeyCondition", func(t *testing.T) {
		s := open(t)
		for v := uint64(1); v <= 4; v++ {
			require.NoError(t, s.Create(ctx, rawEntry("a", v)))
		}
		require.NoError(t, s.Create(ctx, rawEntry("b", 1)))

		list, err := s.Stream().Key(query.PartitionKey("a").Version(query.OpGe, 3)).ToList(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, uint64(3), list[0].Version)
		assert.Equal(t, uint64(4), list[1].Version)

		list, err = s.Stream().Key(query.PartitionKey("a").Version(query.OpNe, 2)).ToList(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		latest, ok, err := s.Stream().Key(query.PartitionKey("a")).Reverse().First(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(4), latest.Version)
	})

	t.Run("Error_CreateDuplicate", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Create(ctx, rawEntry("a", 1)))

		err := s.Create(ctx, rawEntry("a", 1))
		assert.ErrorIs(t, err, domain.ErrSecretAlreadyExists)
	})

	t.Run("Success_Update", func(t *testing.T) {
		s := open(t)
		previous := rawEntry("a", 1)
		require.NoError(t, s.Create(ctx, previous))

		updated := previous.Clone()
		updated.State = domain.StateDisabled
		updated.EncryptedPayload = []byte("rewritten")
		require.NoError(t, s.Update(ctx, updated, previous))

		got, ok, err := s.Stream().Key(query.PartitionKey("a")).First(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.Equal(updated))
	})

	t.Run("Error_UpdateStalePrevious", func(t *testing.T) {
		s := open(t)
		previous := rawEntry("a", 1)
		require.NoError(t, s.Create(ctx, previous))

		stale := previous.Clone()
		stale.EncryptedPayload = []byte("something else")
		updated := previous.Clone()
		updated.EncryptedPayload = []byte("rewritten")

		err := s.Update(ctx, updated, stale)
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	})

	t.Run("Error_UpdateMissing", func(t *testing.T) {
		s := open(t)
		entry := rawEntry("missing", 1)

		err := s.Update(ctx, entry, entry)
		assert.ErrorIs(t, err, domain.ErrSecretNotFound)
	})

	t.Run("Success_DeleteIsIdempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Create(ctx, rawEntry("a", 1)))
		require.NoError(t, s.Create(ctx, rawEntry("a", 2)))
		require.NoError(t, s.Create(ctx, rawEntry("b", 1)))

		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "never-existed"))

		ids, err := s.KeySet(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.SecretIdentifier{"b"}, ids)
	})

	t.Run("Error_Closed", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Close(ctx))
		require.NoError(t, s.Close(ctx))

		assert.ErrorIs(t, s.Create(ctx, rawEntry("a", 1)), domain.ErrStoreClosed)
		assert.ErrorIs(t, s.Delete(ctx, "a"), domain.ErrStoreClosed)
		_, err := s.KeySet(ctx)
		assert.ErrorIs(t, err, domain.ErrStoreClosed)
		_, err = s.Stream().ToList(ctx)
		assert.ErrorIs(t, err, domain.ErrStoreClosed)
	})
}
