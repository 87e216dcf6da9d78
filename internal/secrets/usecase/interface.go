// Package usecase implements the secrets group engine: the secret lifecycle (create,
// add version, update, delete) and the read paths that decrypt versions on top of a
// Store and an Encryptor.
package usecase

import (
	"context"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// Store defines the persistence contract of a secrets group. Implementations live in the
// repository package: file, table and SQL.
type Store interface {
	Create(ctx context.Context, entry domain.RawSecretEntry) error
	// Update replaces the entry with the same identifier and version, provided the stored
	// entry still equals previous.
	Update(ctx context.Context, entry, previous domain.RawSecretEntry) error
	Delete(ctx context.Context, id domain.SecretIdentifier) error
	KeySet(ctx context.Context) ([]domain.SecretIdentifier, error)
	Stream() query.Stream
	Close(ctx context.Context) error
}

// SecretsGroupUseCase defines the secrets group engine.
//
// Security Note: every returned SecretEntry holds plaintext secret material. Callers MUST
// call Zero on it as soon as it is no longer needed.
type SecretsGroupUseCase interface {
	// Group returns the identifier of the secrets group served by the engine.
	Group() domain.SecretsGroupIdentifier

	// Create stores version 1 of a new secret.
	Create(ctx context.Context, input *domain.NewSecretEntry) (domain.RawSecretEntry, error)
	// AddVersion stores max(version)+1 of an existing secret.
	AddVersion(ctx context.Context, input *domain.NewSecretEntry) (domain.RawSecretEntry, error)
	// Update rewrites the metadata of one version. The secret value never changes.
	Update(ctx context.Context, input *domain.SecretMetadata) (domain.RawSecretEntry, error)
	// Delete removes every version of id. Deleting an absent secret is a no-op.
	Delete(ctx context.Context, id domain.SecretIdentifier) error

	Identifiers(ctx context.Context) ([]domain.SecretIdentifier, error)
	// Stream queries the raw entries without decrypting them.
	Stream() query.Stream

	// Decrypt opens raw and requires the result to be active.
	Decrypt(
		ctx context.Context,
		raw domain.RawSecretEntry,
		expectedID domain.SecretIdentifier,
		expectedVersion uint64,
	) (*domain.SecretEntry, error)
	// DecryptEvenIfNotActive opens raw regardless of its state and window.
	DecryptEvenIfNotActive(
		ctx context.Context,
		raw domain.RawSecretEntry,
		expectedID domain.SecretIdentifier,
		expectedVersion uint64,
	) (*domain.SecretEntry, error)

	GetLatestActiveVersion(ctx context.Context, id domain.SecretIdentifier) (*domain.SecretEntry, error)
	GetActive(ctx context.Context, id domain.SecretIdentifier, version uint64) (*domain.SecretEntry, error)
	GetAllActiveVersions(ctx context.Context, id domain.SecretIdentifier) ([]*domain.SecretEntry, error)
	GetLatestActiveVersionsOfAllSecrets(ctx context.Context) ([]*domain.SecretEntry, error)
	GetAllActiveVersionsOfAllSecrets(ctx context.Context) ([]*domain.SecretEntry, error)
	// GetVersion returns a version whether or not it is active.
	GetVersion(ctx context.Context, id domain.SecretIdentifier, version uint64) (*domain.SecretEntry, error)
	// MaxVersion returns the highest stored version of id.
	MaxVersion(ctx context.Context, id domain.SecretIdentifier) (uint64, error)

	// Close flushes and closes the underlying store.
	Close(ctx context.Context) error
}
