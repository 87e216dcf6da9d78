package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	cryptoService "github.com/allisson/secretsgroup/internal/crypto/service"
	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/testutil"
)

var testGroup = domain.SecretsGroupIdentifier{Region: "eu-west-1", Name: "payments"}

func newMemBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() {
		_ = bucket.Close()
	})
	return bucket
}

func openTestFileStore(
	t *testing.T,
	bucket *blob.Bucket,
	group domain.SecretsGroupIdentifier,
	enc cryptoService.Encryptor,
) *FileStore {
	t.Helper()
	s, err := OpenFileStore(context.Background(), bucket, group, enc, testutil.NewLogger())
	require.NoError(t, err)
	return s
}

func TestFileStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) contractStore {
		return openTestFileStore(t, newMemBucket(t), testGroup, testutil.NewEncryptor(t))
	})
}

func TestFileStoreKey(t *testing.T) {
	assert.Equal(t, "eu-west-1/payments.sg", FileStoreKey(testGroup))
}

func TestOpenFileStore_MissingFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket(t)

	s := openTestFileStore(t, bucket, testGroup, testutil.NewEncryptor(t))
	ids, err := s.KeySet(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Nothing changed, so nothing is written.
	require.NoError(t, s.Close(ctx))
	exists, err := bucket.Exists(ctx, FileStoreKey(testGroup))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStore_PersistAndReopen(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket(t)
	enc := testutil.NewEncryptor(t)

	windowed := rawEntry("db-password", 2)
	windowed.State = domain.StateDisabled
	windowed.NotBefore = unixTime(1_700_000_000)
	windowed.NotAfter = unixTime(1_700_003_600)
	want := []domain.RawSecretEntry{rawEntry("api-key", 1), rawEntry("db-password", 1), windowed}

	s := openTestFileStore(t, bucket, testGroup, enc)
	for _, e := range want {
		require.NoError(t, s.Create(ctx, e))
	}
	require.NoError(t, s.Close(ctx))

	data, err := bucket.ReadAll(ctx, FileStoreKey(testGroup))
	require.NoError(t, err)
	assert.Equal(t, FileFormatVersion, data[0])
	assert.NotContains(t, string(data), "db-password")

	reopened := openTestFileStore(t, bucket, testGroup, enc)
	got, err := reopened.Stream().ToList(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "entry %d", i)
	}
}

func TestFileStore_Flush(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket(t)
	enc := testutil.NewEncryptor(t)

	s := openTestFileStore(t, bucket, testGroup, enc)
	require.NoError(t, s.Create(ctx, rawEntry("a", 1)))
	require.NoError(t, s.Flush(ctx))

	other := openTestFileStore(t, bucket, testGroup, enc)
	ids, err := other.KeySet(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SecretIdentifier{"a"}, ids)

	require.NoError(t, s.Close(ctx))
	assert.ErrorIs(t, s.Flush(ctx), domain.ErrStoreClosed)
}

func TestFileStore_SizeDoesNotRevealIdentifierLength(t *testing.T) {
	ctx := context.Background()
	enc := testutil.NewEncryptor(t)

	sizeOf := func(id string) int64 {
		bucket := newMemBucket(t)
		s := openTestFileStore(t, bucket, testGroup, enc)
		entry := rawEntry("x", 1)
		entry.SecretIdentifier = domain.SecretIdentifier(id)
		require.NoError(t, s.Create(ctx, entry))
		require.NoError(t, s.Close(ctx))

		attrs, err := bucket.Attributes(ctx, FileStoreKey(testGroup))
		require.NoError(t, err)
		return attrs.Size
	}

	short := sizeOf("a")
	long := sizeOf(strings.Repeat("b", domain.MaxIdentifierLength))
	assert.Equal(t, short, long)
}

func TestOpenFileStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	enc := testutil.NewEncryptor(t)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Error_EmptyFile", data: []byte{}},
		{name: "Error_UnknownFormatVersion", data: []byte{9, 1, 2, 3}},
		{name: "Error_GarbageCiphertext", data: []byte{FileFormatVersion, 1, 1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := newMemBucket(t)
			require.NoError(t, bucket.WriteAll(ctx, FileStoreKey(testGroup), tt.data, nil))

			_, err := OpenFileStore(ctx, bucket, testGroup, enc, testutil.NewLogger())
			assert.ErrorIs(t, err, domain.ErrStoreCorrupt)
		})
	}
}

func TestOpenFileStore_FileOfAnotherGroup(t *testing.T) {
	ctx := context.Background()
	bucket := newMemBucket(t)
	enc := testutil.NewEncryptor(t)
	other := domain.SecretsGroupIdentifier{Region: "eu-west-1", Name: "billing"}

	s := openTestFileStore(t, bucket, testGroup, enc)
	require.NoError(t, s.Create(ctx, rawEntry("a", 1)))
	require.NoError(t, s.Close(ctx))

	// Copy the payments file over the billing key: the group context no longer matches.
	require.NoError(t, bucket.Copy(ctx, FileStoreKey(other), FileStoreKey(testGroup), nil))

	_, err := OpenFileStore(ctx, bucket, other, enc, testutil.NewLogger())
	assert.ErrorIs(t, err, domain.ErrStoreCorrupt)
}

func TestFileStore_ScanReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := openTestFileStore(t, newMemBucket(t), testGroup, testutil.NewEncryptor(t))
	require.NoError(t, s.Create(ctx, rawEntry("a", 1)))

	list, err := s.Stream().ToList(ctx)
	require.NoError(t, err)
	list[0].EncryptedPayload[0] = 'X'

	again, err := s.Stream().ToList(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte('p'), again[0].EncryptedPayload[0])
}
