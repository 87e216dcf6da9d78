package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/allisson/secretsgroup/internal/codec"
	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
	cryptoService "github.com/allisson/secretsgroup/internal/crypto/service"
	apperrors "github.com/allisson/secretsgroup/internal/errors"
	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// FileFormatVersion is the leading byte of a group file, written in front of the
// encrypted codec buffer.
const FileFormatVersion byte = 1

// fileSchema is the record layout of a group file. The identifier is padded to its
// maximum length so the file size does not reveal identifier lengths.
var fileSchema = codec.Schema{
	Version: 1,
	Fields: []codec.Field{
		{Name: "secret_identifier", Kind: codec.KindBytes, Padding: domain.MaxIdentifierLength},
		{Name: "version", Kind: codec.KindInt64},
		{Name: "state", Kind: codec.KindByte},
		{Name: "not_before", Kind: codec.KindInt64, Optional: true},
		{Name: "not_after", Kind: codec.KindInt64, Optional: true},
		{Name: "encrypted_payload", Kind: codec.KindBytes},
	},
}

// FileStore keeps a whole secrets group in memory and persists it as one encrypted
// object in a blob bucket.
//
// The object is [FileFormatVersion][Encrypt(codec buffer)] where the codec buffer holds
// every entry and the encryption context names the group. It is read once by
// OpenFileStore and written back by Flush or Close when the store changed. The bucket
// is owned by the caller.
type FileStore struct {
	mu        sync.RWMutex
	bucket    *blob.Bucket
	key       string
	group     domain.SecretsGroupIdentifier
	encryptor cryptoService.Encryptor
	logger    *slog.Logger
	entries   map[domain.SecretIdentifier][]domain.RawSecretEntry
	dirty     bool
	closed    bool
}

// FileStoreKey returns the object key of a group file: "<region>/<name>.sg".
func FileStoreKey(group domain.SecretsGroupIdentifier) string {
	return group.Region + "/" + group.Name + ".sg"
}

// OpenFileStore loads the group file of group from bucket. A missing object is an
// empty store. A file that cannot be decrypted or parsed fails with ErrStoreCorrupt.
func OpenFileStore(
	ctx context.Context,
	bucket *blob.Bucket,
	group domain.SecretsGroupIdentifier,
	encryptor cryptoService.Encryptor,
	logger *slog.Logger,
) (*FileStore, error) {
	s := &FileStore{
		bucket:    bucket,
		key:       FileStoreKey(group),
		group:     group,
		encryptor: encryptor,
		logger:    logger,
		entries:   make(map[domain.SecretIdentifier][]domain.RawSecretEntry),
	}

	data, err := bucket.ReadAll(ctx, s.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			logger.Debug("secrets group file not found, starting empty", slog.String("key", s.key))
			return s, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", apperrors.ErrIO, s.key, err)
	}

	if err := s.load(ctx, data); err != nil {
		return nil, err
	}

	logger.Debug("secrets group file loaded",
		slog.String("key", s.key),
		slog.Int("secrets", len(s.entries)),
	)
	return s, nil
}

func (s *FileStore) load(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", domain.ErrStoreCorrupt)
	}
	if data[0] != FileFormatVersion {
		return fmt.Errorf("%w: unsupported file format version %d", domain.ErrStoreCorrupt, data[0])
	}

	buf, err := s.encryptor.Decrypt(ctx, data[1:], domain.GroupEncryptionContext(s.group))
	if err != nil {
		if errors.Is(err, apperrors.ErrIntegrity) {
			return fmt.Errorf("%w: %v", domain.ErrStoreCorrupt, err)
		}
		return fmt.Errorf("failed to decrypt secrets group: %w", err)
	}
	defer cryptoDomain.Zero(buf)

	records, err := fileSchema.Decode(buf)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreCorrupt, err)
	}

	for i, rec := range records {
		entry := recordToEntry(rec)
		if entry.Version == 0 || !entry.State.Valid() {
			return fmt.Errorf("%w: entry %d has invalid version or state", domain.ErrStoreCorrupt, i)
		}
		if err := s.create(entry); err != nil {
			return fmt.Errorf("%w: entry %d: %v", domain.ErrStoreCorrupt, i, err)
		}
	}
	s.dirty = false
	return nil
}

// Create adds a new entry. It fails with ErrSecretAlreadyExists when the
// identifier/version pair is taken.
func (s *FileStore) Create(_ context.Context, entry domain.RawSecretEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.create(entry.Clone())
}

func (s *FileStore) create(entry domain.RawSecretEntry) error {
	versions := s.entries[entry.SecretIdentifier]
	i, found := slices.BinarySearchFunc(versions, entry.Version, func(e domain.RawSecretEntry, v uint64) int {
		return cmp.Compare(e.Version, v)
	})
	if found {
		return fmt.Errorf("%w: %s version %d", domain.ErrSecretAlreadyExists, entry.SecretIdentifier, entry.Version)
	}
	s.entries[entry.SecretIdentifier] = slices.Insert(versions, i, entry)
	s.dirty = true
	return nil
}

// Update replaces the stored entry with the same identifier and version. The stored
// entry must still equal previous, otherwise ErrConcurrentModification is returned.
func (s *FileStore) Update(_ context.Context, entry, previous domain.RawSecretEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}

	versions := s.entries[entry.SecretIdentifier]
	i, found := slices.BinarySearchFunc(versions, entry.Version, func(e domain.RawSecretEntry, v uint64) int {
		return cmp.Compare(e.Version, v)
	})
	if !found {
		return fmt.Errorf("%w: %s version %d", domain.ErrSecretNotFound, entry.SecretIdentifier, entry.Version)
	}
	if !versions[i].Equal(previous) {
		return domain.ErrConcurrentModification
	}

	versions[i] = entry.Clone()
	s.dirty = true
	return nil
}

// Delete removes every version of id. Deleting an absent identifier is a no-op.
func (s *FileStore) Delete(_ context.Context, id domain.SecretIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	if _, ok := s.entries[id]; ok {
		delete(s.entries, id)
		s.dirty = true
	}
	return nil
}

// KeySet returns the stored identifiers in ascending order.
func (s *FileStore) KeySet(_ context.Context) ([]domain.SecretIdentifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	return sortedKeys(s.entries), nil
}

// Stream returns a stream over the store.
func (s *FileStore) Stream() query.Stream {
	return query.NewStream(s)
}

// Scan implements query.Source. The partition key is served from the index.
func (s *FileStore) Scan(_ context.Context, key query.KeyCondition) ([]domain.RawSecretEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	var out []domain.RawSecretEntry
	appendMatching := func(versions []domain.RawSecretEntry) {
		for i := range versions {
			if key.Matches(&versions[i]) {
				out = append(out, versions[i].Clone())
			}
		}
	}

	if id, ok := key.Partition(); ok {
		appendMatching(s.entries[id])
		return out, nil
	}
	for _, id := range sortedKeys(s.entries) {
		appendMatching(s.entries[id])
	}
	return out, nil
}

// Flush writes the group file if the store changed since it was loaded or last flushed.
func (s *FileStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.flush(ctx)
}

// Close flushes pending changes and closes the store. Closing twice is a no-op.
func (s *FileStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if err := s.flush(ctx); err != nil {
		return err
	}
	s.closed = true
	s.entries = nil
	s.logger.Debug("secrets group file closed", slog.String("key", s.key))
	return nil
}

func (s *FileStore) flush(ctx context.Context) error {
	if !s.dirty {
		return nil
	}

	records := make([]codec.Record, 0, len(s.entries))
	for _, id := range sortedKeys(s.entries) {
		for _, e := range s.entries[id] {
			records = append(records, entryToRecord(e))
		}
	}

	buf, err := fileSchema.Encode(records)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	defer cryptoDomain.Zero(buf)

	ciphertext, err := s.encryptor.Encrypt(ctx, buf, domain.GroupEncryptionContext(s.group))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	data := make([]byte, 0, 1+len(ciphertext))
	data = append(data, FileFormatVersion)
	data = append(data, ciphertext...)

	// The blob writer only makes the object visible once the whole write commits.
	opts := &blob.WriterOptions{ContentType: "application/octet-stream"}
	if err := s.bucket.WriteAll(ctx, s.key, data, opts); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	s.dirty = false
	s.logger.Debug("secrets group file written",
		slog.String("key", s.key),
		slog.Int("entries", len(records)),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func entryToRecord(e domain.RawSecretEntry) codec.Record {
	notBefore, notAfter := codec.Absent(), codec.Absent()
	if sec, ok := unixPtr(e.NotBefore); ok {
		notBefore = codec.Int64(sec)
	}
	if sec, ok := unixPtr(e.NotAfter); ok {
		notAfter = codec.Int64(sec)
	}
	return codec.Record{
		codec.String(string(e.SecretIdentifier)),
		codec.Int64(int64(e.Version)),
		codec.Byte(byte(e.State)),
		notBefore,
		notAfter,
		codec.Bytes(e.EncryptedPayload),
	}
}

func recordToEntry(rec codec.Record) domain.RawSecretEntry {
	return domain.RawSecretEntry{
		SecretIdentifier: domain.SecretIdentifier(rec[0].Bytes),
		Version:          uint64(rec[1].Int),
		State:            domain.State(rec[2].Byte),
		NotBefore:        timePtr(rec[3].Int, rec[3].Present),
		NotAfter:         timePtr(rec[4].Int, rec[4].Present),
		EncryptedPayload: rec[5].Bytes,
	}
}
