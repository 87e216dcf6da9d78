package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
	cryptoService "github.com/allisson/secretsgroup/internal/crypto/service"
	apperrors "github.com/allisson/secretsgroup/internal/errors"
	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// DefaultDecryptConcurrency bounds the parallel decrypts of bulk reads.
const DefaultDecryptConcurrency = 8

// secretsGroupUseCase implements SecretsGroupUseCase.
//
// Writers take mu exclusively for their whole duration, so the read-max-then-write of
// AddVersion is atomic within the process. Readers share it while they scan the store.
// Nothing coordinates separate processes: two writers racing on the same store surface
// as ErrSecretAlreadyExists or ErrConcurrentModification from the backend.
type secretsGroupUseCase struct {
	mu          sync.RWMutex
	store       Store
	encryptor   cryptoService.Encryptor
	group       domain.SecretsGroupIdentifier
	actor       domain.UserAlias
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewSecretsGroupUseCase creates the engine of group on top of store. actor is recorded
// as the creator and modifier of the versions written through this engine.
func NewSecretsGroupUseCase(
	store Store,
	encryptor cryptoService.Encryptor,
	group domain.SecretsGroupIdentifier,
	actor domain.UserAlias,
	decryptConcurrency int,
	logger *slog.Logger,
) SecretsGroupUseCase {
	if decryptConcurrency < 1 {
		decryptConcurrency = DefaultDecryptConcurrency
	}
	return &secretsGroupUseCase{
		store:       store,
		encryptor:   encryptor,
		group:       group,
		actor:       actor,
		concurrency: decryptConcurrency,
		logger:      logger.With(slog.String("secrets_group", group.String())),
		now:         time.Now,
	}
}

func (s *secretsGroupUseCase) Group() domain.SecretsGroupIdentifier {
	return s.group
}

// Create stores version 1 of a new secret.
func (s *secretsGroupUseCase) Create(
	ctx context.Context,
	input *domain.NewSecretEntry,
) (domain.RawSecretEntry, error) {
	if err := input.Validate(); err != nil {
		return domain.RawSecretEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.store.Stream().
		Key(query.PartitionKey(input.SecretIdentifier).Version(query.OpEq, 1)).
		First(ctx)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	if found {
		return domain.RawSecretEntry{}, fmt.Errorf("%w: %s", domain.ErrSecretAlreadyExists, input.SecretIdentifier)
	}

	return s.write(ctx, input, 1, "secret created")
}

// AddVersion stores the next version of an existing secret.
func (s *secretsGroupUseCase) AddVersion(
	ctx context.Context,
	input *domain.NewSecretEntry,
) (domain.RawSecretEntry, error) {
	if err := input.Validate(); err != nil {
		return domain.RawSecretEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxVersion, err := s.maxVersion(ctx, input.SecretIdentifier)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	if maxVersion == 0 {
		return domain.RawSecretEntry{}, fmt.Errorf("%w: %s", domain.ErrSecretNotFound, input.SecretIdentifier)
	}

	return s.write(ctx, input, maxVersion+1, "secret version added")
}

// write seals input as the given version and creates it in the store. Callers hold mu.
func (s *secretsGroupUseCase) write(
	ctx context.Context,
	input *domain.NewSecretEntry,
	version uint64,
	msg string,
) (domain.RawSecretEntry, error) {
	state := input.State
	if state == 0 {
		state = domain.StateEnabled
	}
	now := s.now().UTC().Truncate(time.Second)

	raw := domain.RawSecretEntry{
		SecretIdentifier: input.SecretIdentifier,
		Version:          version,
		State:            state,
		NotBefore:        domain.TruncateTime(input.NotBefore),
		NotAfter:         domain.TruncateTime(input.NotAfter),
	}
	payload := &domain.EncryptionPayload{
		SecretIdentifier: input.SecretIdentifier,
		Version:          version,
		SecretValue:      input.SecretValue,
		UserData:         input.UserData,
		Comment:          input.Comment,
		Created:          now,
		Modified:         now,
		CreatedBy:        s.actor,
		ModifiedBy:       s.actor,
	}

	ciphertext, err := s.seal(ctx, payload, raw)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	raw.EncryptedPayload = ciphertext

	if err := s.store.Create(ctx, raw); err != nil {
		return domain.RawSecretEntry{}, err
	}

	s.logger.Info(msg,
		slog.String("secret_identifier", string(raw.SecretIdentifier)),
		slog.Uint64("version", raw.Version),
		slog.String("state", raw.State.String()),
	)
	return raw, nil
}

// Update merges input into the stored version and rewrites it in place.
func (s *secretsGroupUseCase) Update(
	ctx context.Context,
	input *domain.SecretMetadata,
) (domain.RawSecretEntry, error) {
	if err := input.Validate(); err != nil {
		return domain.RawSecretEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.store.Stream().
		Key(query.PartitionKey(input.SecretIdentifier).Version(query.OpEq, input.Version)).
		First(ctx)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	if !found {
		return domain.RawSecretEntry{}, fmt.Errorf(
			"%w: %s version %d", domain.ErrSecretNotFound, input.SecretIdentifier, input.Version,
		)
	}

	payload, err := s.open(ctx, current, input.SecretIdentifier, input.Version)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	defer payload.Zero()

	updated := current.Clone()
	updated.EncryptedPayload = nil
	if input.State != nil {
		updated.State = *input.State
	}
	updated.NotBefore = domain.TruncateTime(input.NotBefore.Apply(current.NotBefore))
	updated.NotAfter = domain.TruncateTime(input.NotAfter.Apply(current.NotAfter))
	if err := domain.ValidateWindow(updated.NotBefore, updated.NotAfter); err != nil {
		return domain.RawSecretEntry{}, fmt.Errorf("%w: %v", domain.ErrInvalidSecret, err)
	}

	payload.Comment = input.Comment.Apply(payload.Comment)
	if !input.UserData.IsKeep() {
		cryptoDomain.Zero(payload.UserData)
		payload.UserData = nil
		if v, ok := input.UserData.Value(); ok {
			payload.UserData = bytes.Clone(v)
		}
	}
	payload.Modified = s.now().UTC().Truncate(time.Second)
	payload.ModifiedBy = s.actor

	ciphertext, err := s.seal(ctx, payload, updated)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	updated.EncryptedPayload = ciphertext

	if err := s.store.Update(ctx, updated, current); err != nil {
		return domain.RawSecretEntry{}, err
	}

	s.logger.Info("secret updated",
		slog.String("secret_identifier", string(updated.SecretIdentifier)),
		slog.Uint64("version", updated.Version),
		slog.String("state", updated.State.String()),
	)
	return updated, nil
}

// Delete removes every version of id.
func (s *secretsGroupUseCase) Delete(ctx context.Context, id domain.SecretIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("secret deleted", slog.String("secret_identifier", string(id)))
	return nil
}

func (s *secretsGroupUseCase) Identifiers(ctx context.Context) ([]domain.SecretIdentifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.KeySet(ctx)
}

// Stream returns a stream whose scans hold the read lock. Its clock is the engine's.
func (s *secretsGroupUseCase) Stream() query.Stream {
	return query.NewStream(query.SourceFunc(s.scan)).WithClock(s.now)
}

func (s *secretsGroupUseCase) scan(ctx context.Context, key query.KeyCondition) ([]domain.RawSecretEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Stream().Key(key).ToList(ctx)
}

// Decrypt opens raw and fails with ErrSecretNotActive unless the result is active.
func (s *secretsGroupUseCase) Decrypt(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.SecretEntry, error) {
	entry, err := s.DecryptEvenIfNotActive(ctx, raw, expectedID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if !entry.IsActive(s.now()) {
		entry.Zero()
		return nil, fmt.Errorf("%w: %s version %d", domain.ErrSecretNotActive, expectedID, expectedVersion)
	}
	return entry, nil
}

// DecryptEvenIfNotActive opens raw, checking it is the record bound to expectedID and
// expectedVersion.
func (s *secretsGroupUseCase) DecryptEvenIfNotActive(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.SecretEntry, error) {
	payload, err := s.open(ctx, raw, expectedID, expectedVersion)
	if err != nil {
		return nil, err
	}

	return &domain.SecretEntry{
		SecretIdentifier: raw.SecretIdentifier,
		Version:          raw.Version,
		State:            raw.State,
		NotBefore:        domain.TruncateTime(raw.NotBefore),
		NotAfter:         domain.TruncateTime(raw.NotAfter),
		SecretValue:      payload.SecretValue,
		UserData:         payload.UserData,
		Comment:          payload.Comment,
		Created:          payload.Created,
		Modified:         payload.Modified,
		CreatedBy:        payload.CreatedBy,
		ModifiedBy:       payload.ModifiedBy,
	}, nil
}

// seal encrypts payload bound to the plaintext fields of raw.
func (s *secretsGroupUseCase) seal(
	ctx context.Context,
	payload *domain.EncryptionPayload,
	raw domain.RawSecretEntry,
) ([]byte, error) {
	plaintext, err := domain.MarshalPayload(payload)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	ciphertext, err := s.encryptor.Encrypt(ctx, plaintext, raw.EncryptionContext(s.group))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret payload: %w", err)
	}
	return ciphertext, nil
}

// open decrypts the payload of raw with the context derived from its plaintext fields
// and checks that raw, the expected key and the payload all name the same version.
func (s *secretsGroupUseCase) open(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.EncryptionPayload, error) {
	if raw.SecretIdentifier != expectedID || raw.Version != expectedVersion {
		return nil, s.tampered(raw, fmt.Errorf("record is %s version %d, expected %s version %d",
			raw.SecretIdentifier, raw.Version, expectedID, expectedVersion))
	}

	ec := domain.NewEncryptionContext(s.group, expectedID, expectedVersion, raw.State, raw.NotBefore, raw.NotAfter)
	plaintext, err := s.encryptor.Decrypt(ctx, raw.EncryptedPayload, ec)
	if err != nil {
		if errors.Is(err, apperrors.ErrIntegrity) {
			return nil, s.tampered(raw, err)
		}
		return nil, fmt.Errorf("failed to decrypt secret payload: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)

	payload, err := domain.UnmarshalPayload(plaintext)
	if err != nil {
		return nil, s.tampered(raw, err)
	}
	if payload.SecretIdentifier != expectedID || payload.Version != expectedVersion {
		payload.Zero()
		return nil, s.tampered(raw, fmt.Errorf("payload is %s version %d",
			payload.SecretIdentifier, payload.Version))
	}
	return payload, nil
}

func (s *secretsGroupUseCase) tampered(raw domain.RawSecretEntry, cause error) error {
	s.logger.Error("secret entry failed integrity check",
		slog.String("secret_identifier", string(raw.SecretIdentifier)),
		slog.Uint64("version", raw.Version),
		slog.Any("error", cause),
	)
	return fmt.Errorf("%w: %w", domain.ErrPotentiallyMalicious, cause)
}

// GetLatestActiveVersion returns the highest active version of id.
func (s *secretsGroupUseCase) GetLatestActiveVersion(
	ctx context.Context,
	id domain.SecretIdentifier,
) (*domain.SecretEntry, error) {
	raw, found, err := s.Stream().
		Key(query.PartitionKey(id)).
		Filter(query.Active()).
		Reverse().
		First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, s.missingOrInactive(ctx, id)
	}
	return s.Decrypt(ctx, raw, id, raw.Version)
}

// GetActive returns version of id, which must be active.
func (s *secretsGroupUseCase) GetActive(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (*domain.SecretEntry, error) {
	raw, err := s.getRaw(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return s.Decrypt(ctx, raw, id, version)
}

// GetAllActiveVersions returns the active versions of id in ascending order.
func (s *secretsGroupUseCase) GetAllActiveVersions(
	ctx context.Context,
	id domain.SecretIdentifier,
) ([]*domain.SecretEntry, error) {
	raws, err := s.Stream().Key(query.PartitionKey(id)).Filter(query.Active()).ToList(ctx)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		if err := s.missingOrInactive(ctx, id); errors.Is(err, domain.ErrSecretNotFound) {
			return nil, err
		}
		return []*domain.SecretEntry{}, nil
	}
	return s.decryptAll(ctx, raws)
}

// GetLatestActiveVersionsOfAllSecrets returns, per secret, its highest active version.
func (s *secretsGroupUseCase) GetLatestActiveVersionsOfAllSecrets(ctx context.Context) ([]*domain.SecretEntry, error) {
	raws, err := s.Stream().Filter(query.Active()).Reverse().UniquePrimaryKey().ToList(ctx)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(ctx, raws)
}

// GetAllActiveVersionsOfAllSecrets returns every active version of every secret.
func (s *secretsGroupUseCase) GetAllActiveVersionsOfAllSecrets(ctx context.Context) ([]*domain.SecretEntry, error) {
	raws, err := s.Stream().Filter(query.Active()).ToList(ctx)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(ctx, raws)
}

// GetVersion returns version of id regardless of whether it is active.
func (s *secretsGroupUseCase) GetVersion(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (*domain.SecretEntry, error) {
	raw, err := s.getRaw(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return s.DecryptEvenIfNotActive(ctx, raw, id, version)
}

// MaxVersion returns the highest stored version of id.
func (s *secretsGroupUseCase) MaxVersion(ctx context.Context, id domain.SecretIdentifier) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.maxVersion(ctx, id)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrSecretNotFound, id)
	}
	return v, nil
}

// maxVersion returns 0 when id has no versions. Callers hold mu.
func (s *secretsGroupUseCase) maxVersion(ctx context.Context, id domain.SecretIdentifier) (uint64, error) {
	latest, found, err := s.store.Stream().Key(query.PartitionKey(id)).Reverse().First(ctx)
	if err != nil || !found {
		return 0, err
	}
	return latest.Version, nil
}

func (s *secretsGroupUseCase) getRaw(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (domain.RawSecretEntry, error) {
	raw, found, err := s.Stream().Key(query.PartitionKey(id).Version(query.OpEq, version)).First(ctx)
	if err != nil {
		return domain.RawSecretEntry{}, err
	}
	if !found {
		return domain.RawSecretEntry{}, fmt.Errorf("%w: %s version %d", domain.ErrSecretNotFound, id, version)
	}
	return raw, nil
}

// missingOrInactive tells a secret without versions apart from one without active versions.
func (s *secretsGroupUseCase) missingOrInactive(ctx context.Context, id domain.SecretIdentifier) error {
	n, err := s.Stream().Key(query.PartitionKey(id)).Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSecretNotFound, id)
	}
	return fmt.Errorf("%w: %s has no active version", domain.ErrSecretNotActive, id)
}

// decryptAll decrypts raws concurrently, preserving their order. On error every entry
// decrypted so far is zeroed.
func (s *secretsGroupUseCase) decryptAll(
	ctx context.Context,
	raws []domain.RawSecretEntry,
) ([]*domain.SecretEntry, error) {
	out := make([]*domain.SecretEntry, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range raws {
		g.Go(func() error {
			entry, err := s.Decrypt(gctx, raws[i], raws[i].SecretIdentifier, raws[i].Version)
			if err != nil {
				return err
			}
			out[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, e := range out {
			e.Zero()
		}
		return nil, err
	}
	return out, nil
}

// Close closes the store, flushing pending writes.
func (s *secretsGroupUseCase) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close(ctx)
}
