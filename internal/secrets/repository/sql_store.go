package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/secretsgroup/internal/database"
	apperrors "github.com/allisson/secretsgroup/internal/errors"
	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// sqlDialect holds what differs between PostgreSQL and MySQL.
type sqlDialect struct {
	name        string
	placeholder func(n int) string
	encodeID    func(id uuid.UUID) (any, error)
	isDuplicate func(err error) bool
}

var postgresDialect = sqlDialect{
	name:        "postgresql",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	encodeID:    func(id uuid.UUID) (any, error) { return id, nil },
	isDuplicate: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

var mysqlDialect = sqlDialect{
	name:        "mysql",
	placeholder: func(int) string { return "?" },
	encodeID:    func(id uuid.UUID) (any, error) { return id.MarshalBinary() },
	isDuplicate: func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == 1062
	},
}

// SQLSecretStore implements the store contract on the secret_entries table. Each row
// belongs to one secrets group (group_region, group_name), so one database can hold
// many groups. Queries run inside the transaction carried by ctx, if any.
type SQLSecretStore struct {
	db      *sql.DB
	group   domain.SecretsGroupIdentifier
	dialect sqlDialect
	logger  *slog.Logger
	closed  atomic.Bool
}

// NewPostgreSQLSecretStore creates a store on a PostgreSQL database.
func NewPostgreSQLSecretStore(
	db *sql.DB,
	group domain.SecretsGroupIdentifier,
	logger *slog.Logger,
) *SQLSecretStore {
	return &SQLSecretStore{db: db, group: group, dialect: postgresDialect, logger: logger}
}

// NewMySQLSecretStore creates a store on a MySQL database.
func NewMySQLSecretStore(
	db *sql.DB,
	group domain.SecretsGroupIdentifier,
	logger *slog.Logger,
) *SQLSecretStore {
	return &SQLSecretStore{db: db, group: group, dialect: mysqlDialect, logger: logger}
}

// sqlBuilder numbers placeholders as arguments are added.
type sqlBuilder struct {
	dialect sqlDialect
	sb      strings.Builder
	args    []any
}

func (b *sqlBuilder) write(s string) *sqlBuilder {
	b.sb.WriteString(s)
	return b
}

func (b *sqlBuilder) arg(v any) *sqlBuilder {
	b.args = append(b.args, v)
	b.sb.WriteString(b.dialect.placeholder(len(b.args)))
	return b
}

func (s *SQLSecretStore) builder() *sqlBuilder {
	return &sqlBuilder{dialect: s.dialect}
}

// Create inserts a new row, failing with ErrSecretAlreadyExists on a duplicate key.
func (s *SQLSecretStore) Create(ctx context.Context, entry domain.RawSecretEntry) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	querier := database.GetTx(ctx, s.db)

	id, err := s.dialect.encodeID(uuid.Must(uuid.NewV7()))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal secret entry id")
	}
	now := time.Now().UTC()

	b := s.builder()
	b.write(`INSERT INTO secret_entries (id, group_region, group_name, secret_identifier, version, state, ` +
		`not_before, not_after, encrypted_payload, created_at, updated_at) VALUES (`).
		arg(id).write(", ").
		arg(s.group.Region).write(", ").
		arg(s.group.Name).write(", ").
		arg(string(entry.SecretIdentifier)).write(", ").
		arg(int64(entry.Version)).write(", ").
		arg(int64(entry.State)).write(", ").
		arg(nullUnix(entry.NotBefore)).write(", ").
		arg(nullUnix(entry.NotAfter)).write(", ").
		arg(entry.EncryptedPayload).write(", ").
		arg(now).write(", ").
		arg(now).write(")")

	if _, err := querier.ExecContext(ctx, b.sb.String(), b.args...); err != nil {
		if s.dialect.isDuplicate(err) {
			return fmt.Errorf("%w: %s version %d", domain.ErrSecretAlreadyExists, entry.SecretIdentifier, entry.Version)
		}
		return fmt.Errorf("%w: failed to create secret entry: %v", domain.ErrSerialization, err)
	}
	return nil
}

// Update rewrites a row only if its stored payload still equals previous.EncryptedPayload.
func (s *SQLSecretStore) Update(ctx context.Context, entry, previous domain.RawSecretEntry) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	querier := database.GetTx(ctx, s.db)

	b := s.builder()
	b.write(`UPDATE secret_entries SET state = `).arg(int64(entry.State)).
		write(`, not_before = `).arg(nullUnix(entry.NotBefore)).
		write(`, not_after = `).arg(nullUnix(entry.NotAfter)).
		write(`, encrypted_payload = `).arg(entry.EncryptedPayload).
		write(`, updated_at = `).arg(time.Now().UTC())
	s.whereKey(b, entry.SecretIdentifier, entry.Version)
	b.write(` AND encrypted_payload = `).arg(previous.EncryptedPayload)

	result, err := querier.ExecContext(ctx, b.sb.String(), b.args...)
	if err != nil {
		return fmt.Errorf("%w: failed to update secret entry: %v", domain.ErrSerialization, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to update secret entry: %v", domain.ErrSerialization, err)
	}
	if rows == 1 {
		return nil
	}

	exists, err := s.exists(ctx, querier, entry.SecretIdentifier, entry.Version)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s version %d", domain.ErrSecretNotFound, entry.SecretIdentifier, entry.Version)
	}
	return domain.ErrConcurrentModification
}

func (s *SQLSecretStore) exists(
	ctx context.Context,
	querier database.Querier,
	id domain.SecretIdentifier,
	version uint64,
) (bool, error) {
	b := s.builder()
	b.write(`SELECT COUNT(*) FROM secret_entries`)
	s.whereKey(b, id, version)

	var count int
	if err := querier.QueryRowContext(ctx, b.sb.String(), b.args...).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: failed to read secret entry: %v", apperrors.ErrIO, err)
	}
	return count > 0, nil
}

func (s *SQLSecretStore) whereGroup(b *sqlBuilder) {
	b.write(` WHERE group_region = `).arg(s.group.Region).
		write(` AND group_name = `).arg(s.group.Name)
}

func (s *SQLSecretStore) whereKey(b *sqlBuilder, id domain.SecretIdentifier, version uint64) {
	s.whereGroup(b)
	b.write(` AND secret_identifier = `).arg(string(id)).
		write(` AND version = `).arg(int64(version))
}

// Delete removes every version of id. Deleting an absent identifier is a no-op.
func (s *SQLSecretStore) Delete(ctx context.Context, id domain.SecretIdentifier) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}
	querier := database.GetTx(ctx, s.db)

	b := s.builder()
	b.write(`DELETE FROM secret_entries`)
	s.whereGroup(b)
	b.write(` AND secret_identifier = `).arg(string(id))

	if _, err := querier.ExecContext(ctx, b.sb.String(), b.args...); err != nil {
		return fmt.Errorf("%w: failed to delete secret: %v", domain.ErrSerialization, err)
	}
	return nil
}

// KeySet returns the identifiers of the group in ascending order.
func (s *SQLSecretStore) KeySet(ctx context.Context) ([]domain.SecretIdentifier, error) {
	if s.closed.Load() {
		return nil, domain.ErrStoreClosed
	}
	querier := database.GetTx(ctx, s.db)

	b := s.builder()
	b.write(`SELECT DISTINCT secret_identifier FROM secret_entries`)
	s.whereGroup(b)
	b.write(` ORDER BY secret_identifier`)

	rows, err := querier.QueryContext(ctx, b.sb.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list secrets: %v", apperrors.ErrIO, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []domain.SecretIdentifier
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan secret identifier: %v", apperrors.ErrIO, err)
		}
		ids = append(ids, domain.SecretIdentifier(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list secrets: %v", apperrors.ErrIO, err)
	}
	return ids, nil
}

// Stream returns a stream over the store.
func (s *SQLSecretStore) Stream() query.Stream {
	return query.NewStream(s)
}

var sqlOperators = map[query.Op]string{
	query.OpEq: "=",
	query.OpNe: "<>",
	query.OpLt: "<",
	query.OpLe: "<=",
	query.OpGt: ">",
	query.OpGe: ">=",
}

// Scan implements query.Source, pushing the key condition into the WHERE clause.
func (s *SQLSecretStore) Scan(ctx context.Context, key query.KeyCondition) ([]domain.RawSecretEntry, error) {
	if s.closed.Load() {
		return nil, domain.ErrStoreClosed
	}
	querier := database.GetTx(ctx, s.db)

	b := s.builder()
	b.write(`SELECT secret_identifier, version, state, not_before, not_after, encrypted_payload FROM secret_entries`)
	s.whereGroup(b)
	if id, ok := key.Partition(); ok {
		b.write(` AND secret_identifier = `).arg(string(id))
	}
	if op, version, ok := key.Sort(); ok {
		if sqlOp, known := sqlOperators[op]; known {
			b.write(` AND version ` + sqlOp + ` `).arg(int64(version))
		}
	}
	b.write(` ORDER BY secret_identifier, version`)

	rows, err := querier.QueryContext(ctx, b.sb.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query secret entries: %v", apperrors.ErrIO, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []domain.RawSecretEntry
	for rows.Next() {
		var (
			id                  string
			version, state      int64
			notBefore, notAfter sql.NullInt64
			payload             []byte
		)
		if err := rows.Scan(&id, &version, &state, &notBefore, &notAfter, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to scan secret entry: %v", apperrors.ErrIO, err)
		}
		entries = append(entries, domain.RawSecretEntry{
			SecretIdentifier: domain.SecretIdentifier(id),
			Version:          uint64(version),
			State:            domain.State(state),
			NotBefore:        timePtr(notBefore.Int64, notBefore.Valid),
			NotAfter:         timePtr(notAfter.Int64, notAfter.Valid),
			EncryptedPayload: payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to query secret entries: %v", apperrors.ErrIO, err)
	}
	return entries, nil
}

// Close marks the store closed. The database handle is owned by the caller.
func (s *SQLSecretStore) Close(_ context.Context) error {
	if s.closed.CompareAndSwap(false, true) {
		s.logger.Debug("sql store closed", slog.String("dialect", s.dialect.name))
	}
	return nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	sec, ok := unixPtr(t)
	return sql.NullInt64{Int64: sec, Valid: ok}
}
