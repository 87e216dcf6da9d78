package domain

import (
	"github.com/allisson/secretsgroup/internal/errors"
)

// Secret-specific error definitions.
//
// Every error wraps one of the base sentinels from internal/errors so callers can
// classify failures with errors.Is without knowing which backend produced them.
var (
	// ErrSecretAlreadyExists indicates the identifier/version pair is already stored.
	ErrSecretAlreadyExists = errors.Wrap(errors.ErrConflict, "secret already exists")

	// ErrSecretNotFound indicates the identifier, or the requested version, is absent.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrPotentiallyMalicious indicates the plaintext fields of a stored record disagree
	// with the identity bound inside its ciphertext. The store was corrupted or tampered
	// with; the operation must not be retried.
	ErrPotentiallyMalicious = errors.Wrap(errors.ErrIntegrity, "potentially malicious secret entry")

	// ErrSecretNotActive indicates the entry exists but is disabled or outside its
	// validity window.
	ErrSecretNotActive = errors.Wrap(errors.ErrPrecondition, "secret is not active")

	// ErrStoreCorrupt indicates a persisted store could not be decrypted or parsed.
	ErrStoreCorrupt = errors.Wrap(errors.ErrIntegrity, "secrets group store is corrupt")

	// ErrSerialization indicates the store could not be written back to its backend.
	ErrSerialization = errors.Wrap(errors.ErrIO, "failed to persist secrets group")

	// ErrConcurrentModification indicates a conditional write lost against another writer.
	ErrConcurrentModification = errors.Wrap(errors.ErrConflict, "secret was modified concurrently")

	// ErrStoreClosed indicates an operation on a store after Close.
	ErrStoreClosed = errors.Wrap(errors.ErrPrecondition, "secrets group store is closed")

	// ErrInvalidSecret indicates a secret, identifier or metadata patch failed validation.
	ErrInvalidSecret = errors.Wrap(errors.ErrInvalidInput, "invalid secret")
)
