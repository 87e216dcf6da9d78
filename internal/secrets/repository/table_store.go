package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"sync/atomic"

	"gocloud.dev/docstore"
	"gocloud.dev/docstore/memdocstore"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/secretsgroup/internal/errors"
	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"

	// Register the DynamoDB docstore driver for dynamodb:// collection URLs.
	_ "gocloud.dev/docstore/awsdynamodb/v2"
)

// tableDocument is the docstore representation of a RawSecretEntry. The collection is
// keyed by partition ("<region>/<name>#<identifier>") and version (sort), so several
// secrets groups can share one table.
type tableDocument struct {
	Partition        string `docstore:"partition"`
	SecretsGroup     string `docstore:"secrets_group"`
	SecretIdentifier string `docstore:"secret_identifier"`
	Version          int64  `docstore:"version"`
	State            int64  `docstore:"state"`
	NotBefore        int64  `docstore:"not_before"`
	HasNotBefore     bool   `docstore:"has_not_before"`
	NotAfter         int64  `docstore:"not_after"`
	HasNotAfter      bool   `docstore:"has_not_after"`
	EncryptedPayload []byte `docstore:"encrypted_payload"`
	DocstoreRevision interface{}
}

func tablePartition(group domain.SecretsGroupIdentifier, id domain.SecretIdentifier) string {
	return group.String() + "#" + string(id)
}

func newTableDocument(group domain.SecretsGroupIdentifier, e domain.RawSecretEntry) *tableDocument {
	nb, hasNB := unixPtr(e.NotBefore)
	na, hasNA := unixPtr(e.NotAfter)
	return &tableDocument{
		Partition:        tablePartition(group, e.SecretIdentifier),
		SecretsGroup:     group.String(),
		SecretIdentifier: string(e.SecretIdentifier),
		Version:          int64(e.Version),
		State:            int64(e.State),
		NotBefore:        nb,
		HasNotBefore:     hasNB,
		NotAfter:         na,
		HasNotAfter:      hasNA,
		EncryptedPayload: e.EncryptedPayload,
	}
}

func (d *tableDocument) entry() domain.RawSecretEntry {
	return domain.RawSecretEntry{
		SecretIdentifier: domain.SecretIdentifier(d.SecretIdentifier),
		Version:          uint64(d.Version),
		State:            domain.State(d.State),
		NotBefore:        timePtr(d.NotBefore, d.HasNotBefore),
		NotAfter:         timePtr(d.NotAfter, d.HasNotAfter),
		EncryptedPayload: d.EncryptedPayload,
	}
}

// tableDocumentKey is the composite key used by in-memory collections.
func tableDocumentKey(doc docstore.Document) interface{} {
	switch d := doc.(type) {
	case *tableDocument:
		return fmt.Sprintf("%s#%020d", d.Partition, d.Version)
	case map[string]interface{}:
		return fmt.Sprintf("%v#%020v", d["partition"], d["version"])
	default:
		return nil
	}
}

// OpenTableCollection opens the docstore collection of a table store. mem:// URLs open
// an in-memory collection keyed by (partition, version); other URLs go through
// docstore.OpenCollection, for example
// dynamodb://secrets?partition_key=partition&sort_key=version.
func OpenTableCollection(ctx context.Context, collectionURL string) (*docstore.Collection, error) {
	u, err := url.Parse(collectionURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid table collection url")
	}
	if u.Scheme == memdocstore.Scheme {
		return memdocstore.OpenCollectionWithKeyFunc(tableDocumentKey, nil)
	}

	coll, err := docstore.OpenCollection(ctx, collectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open table collection: %w", err)
	}
	return coll, nil
}

// TableStore implements the store contract for one secrets group on a docstore
// collection. Every document carries its group and queries are restricted to it.
// Conditional updates use docstore revisions. The collection is owned by the caller.
type TableStore struct {
	coll   *docstore.Collection
	group  domain.SecretsGroupIdentifier
	logger *slog.Logger
	closed atomic.Bool
}

// NewTableStore creates a TableStore for group over coll.
func NewTableStore(coll *docstore.Collection, group domain.SecretsGroupIdentifier, logger *slog.Logger) *TableStore {
	return &TableStore{coll: coll, group: group, logger: logger}
}

// Create adds a new entry, failing with ErrSecretAlreadyExists when the key is taken.
func (t *TableStore) Create(ctx context.Context, entry domain.RawSecretEntry) error {
	if t.closed.Load() {
		return domain.ErrStoreClosed
	}

	if err := t.coll.Create(ctx, newTableDocument(t.group, entry)); err != nil {
		if gcerrors.Code(err) == gcerrors.AlreadyExists {
			return fmt.Errorf("%w: %s version %d", domain.ErrSecretAlreadyExists, entry.SecretIdentifier, entry.Version)
		}
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	return nil
}

// Update replaces an entry if the stored document still equals previous.
func (t *TableStore) Update(ctx context.Context, entry, previous domain.RawSecretEntry) error {
	if t.closed.Load() {
		return domain.ErrStoreClosed
	}

	stored := &tableDocument{
		Partition: tablePartition(t.group, entry.SecretIdentifier),
		Version:   int64(entry.Version),
	}
	if err := t.coll.Get(ctx, stored); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return fmt.Errorf("%w: %s version %d", domain.ErrSecretNotFound, entry.SecretIdentifier, entry.Version)
		}
		return fmt.Errorf("failed to read secret entry: %w", err)
	}
	if !stored.entry().Equal(previous) {
		return domain.ErrConcurrentModification
	}

	doc := newTableDocument(t.group, entry)
	doc.DocstoreRevision = stored.DocstoreRevision
	if err := t.coll.Replace(ctx, doc); err != nil {
		switch gcerrors.Code(err) {
		case gcerrors.FailedPrecondition:
			return domain.ErrConcurrentModification
		case gcerrors.NotFound:
			return fmt.Errorf("%w: %s version %d", domain.ErrSecretNotFound, entry.SecretIdentifier, entry.Version)
		default:
			return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
		}
	}
	return nil
}

// Delete removes every version of id. Deleting an absent identifier is a no-op.
func (t *TableStore) Delete(ctx context.Context, id domain.SecretIdentifier) error {
	if t.closed.Load() {
		return domain.ErrStoreClosed
	}

	docs, err := t.scan(ctx, query.PartitionKey(id))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	actions := t.coll.Actions()
	for _, doc := range docs {
		doc.DocstoreRevision = nil
		actions = actions.Delete(doc)
	}
	if err := actions.Do(ctx); err != nil {
		var alErr docstore.ActionListError
		if errors.As(err, &alErr) && allNotFound(alErr) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	return nil
}

func allNotFound(errs docstore.ActionListError) bool {
	for _, e := range errs {
		if gcerrors.Code(e.Err) != gcerrors.NotFound {
			return false
		}
	}
	return true
}

// KeySet returns the stored identifiers in ascending order.
func (t *TableStore) KeySet(ctx context.Context) ([]domain.SecretIdentifier, error) {
	if t.closed.Load() {
		return nil, domain.ErrStoreClosed
	}

	docs, err := t.scan(ctx, query.KeyCondition{})
	if err != nil {
		return nil, err
	}
	ids := make([]domain.SecretIdentifier, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, domain.SecretIdentifier(d.SecretIdentifier))
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Stream returns a stream over the store.
func (t *TableStore) Stream() query.Stream {
	return query.NewStream(t)
}

// Scan implements query.Source with a docstore query on the key condition.
func (t *TableStore) Scan(ctx context.Context, key query.KeyCondition) ([]domain.RawSecretEntry, error) {
	if t.closed.Load() {
		return nil, domain.ErrStoreClosed
	}

	docs, err := t.scan(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RawSecretEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entry())
	}
	return out, nil
}

func (t *TableStore) scan(ctx context.Context, key query.KeyCondition) ([]*tableDocument, error) {
	q := t.coll.Query()
	if id, ok := key.Partition(); ok {
		q = q.Where("partition", "=", tablePartition(t.group, id))
	} else {
		q = q.Where("secrets_group", "=", t.group.String())
	}
	if op, version, ok := key.Sort(); ok && op != query.OpNe {
		q = q.Where("version", op.String(), int64(version))
	}

	iter := q.Get(ctx)
	defer iter.Stop()

	var docs []*tableDocument
	for {
		doc := &tableDocument{}
		err := iter.Next(ctx, doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to query table: %v", apperrors.ErrIO, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close marks the store closed. The collection itself is closed by its owner.
func (t *TableStore) Close(_ context.Context) error {
	if t.closed.CompareAndSwap(false, true) {
		t.logger.Debug("table store closed")
	}
	return nil
}
