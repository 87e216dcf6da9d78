package usecase

import (
	"context"
	"time"

	"github.com/allisson/secretsgroup/internal/metrics"
	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

const metricsDomain = "secrets_group"

// secretsGroupUseCaseWithMetrics decorates SecretsGroupUseCase with metrics instrumentation.
type secretsGroupUseCaseWithMetrics struct {
	next    SecretsGroupUseCase
	metrics metrics.BusinessMetrics
}

// NewSecretsGroupUseCaseWithMetrics wraps a SecretsGroupUseCase with metrics recording.
func NewSecretsGroupUseCaseWithMetrics(
	useCase SecretsGroupUseCase,
	m metrics.BusinessMetrics,
) SecretsGroupUseCase {
	return &secretsGroupUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *secretsGroupUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	s.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

func (s *secretsGroupUseCaseWithMetrics) Group() domain.SecretsGroupIdentifier {
	return s.next.Group()
}

// Create records metrics for secret creation.
func (s *secretsGroupUseCaseWithMetrics) Create(
	ctx context.Context,
	input *domain.NewSecretEntry,
) (domain.RawSecretEntry, error) {
	start := time.Now()
	raw, err := s.next.Create(ctx, input)
	s.record(ctx, "secret_create", start, err)
	return raw, err
}

// AddVersion records metrics for new secret versions.
func (s *secretsGroupUseCaseWithMetrics) AddVersion(
	ctx context.Context,
	input *domain.NewSecretEntry,
) (domain.RawSecretEntry, error) {
	start := time.Now()
	raw, err := s.next.AddVersion(ctx, input)
	s.record(ctx, "secret_add_version", start, err)
	return raw, err
}

// Update records metrics for metadata updates.
func (s *secretsGroupUseCaseWithMetrics) Update(
	ctx context.Context,
	input *domain.SecretMetadata,
) (domain.RawSecretEntry, error) {
	start := time.Now()
	raw, err := s.next.Update(ctx, input)
	s.record(ctx, "secret_update", start, err)
	return raw, err
}

// Delete records metrics for secret deletion.
func (s *secretsGroupUseCaseWithMetrics) Delete(ctx context.Context, id domain.SecretIdentifier) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.record(ctx, "secret_delete", start, err)
	return err
}

// Identifiers records metrics for listing secrets.
func (s *secretsGroupUseCaseWithMetrics) Identifiers(ctx context.Context) ([]domain.SecretIdentifier, error) {
	start := time.Now()
	ids, err := s.next.Identifiers(ctx)
	s.record(ctx, "secret_list", start, err)
	return ids, err
}

func (s *secretsGroupUseCaseWithMetrics) Stream() query.Stream {
	return s.next.Stream()
}

// Decrypt records metrics for active-only decryption.
func (s *secretsGroupUseCaseWithMetrics) Decrypt(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.SecretEntry, error) {
	start := time.Now()
	entry, err := s.next.Decrypt(ctx, raw, expectedID, expectedVersion)
	s.record(ctx, "secret_decrypt", start, err)
	return entry, err
}

// DecryptEvenIfNotActive records metrics for unrestricted decryption.
func (s *secretsGroupUseCaseWithMetrics) DecryptEvenIfNotActive(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.SecretEntry, error) {
	start := time.Now()
	entry, err := s.next.DecryptEvenIfNotActive(ctx, raw, expectedID, expectedVersion)
	s.record(ctx, "secret_decrypt_inactive", start, err)
	return entry, err
}

// GetLatestActiveVersion records metrics for latest-version reads.
func (s *secretsGroupUseCaseWithMetrics) GetLatestActiveVersion(
	ctx context.Context,
	id domain.SecretIdentifier,
) (*domain.SecretEntry, error) {
	start := time.Now()
	entry, err := s.next.GetLatestActiveVersion(ctx, id)
	s.record(ctx, "secret_get_latest", start, err)
	return entry, err
}

// GetActive records metrics for versioned reads.
func (s *secretsGroupUseCaseWithMetrics) GetActive(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (*domain.SecretEntry, error) {
	start := time.Now()
	entry, err := s.next.GetActive(ctx, id, version)
	s.record(ctx, "secret_get_version", start, err)
	return entry, err
}

func (s *secretsGroupUseCaseWithMetrics) GetAllActiveVersions(
	ctx context.Context,
	id domain.SecretIdentifier,
) ([]*domain.SecretEntry, error) {
	start := time.Now()
	entries, err := s.next.GetAllActiveVersions(ctx, id)
	s.record(ctx, "secret_get_versions", start, err)
	return entries, err
}

func (s *secretsGroupUseCaseWithMetrics) GetLatestActiveVersionsOfAllSecrets(
	ctx context.Context,
) ([]*domain.SecretEntry, error) {
	start := time.Now()
	entries, err := s.next.GetLatestActiveVersionsOfAllSecrets(ctx)
	s.record(ctx, "secret_get_latest_all", start, err)
	return entries, err
}

func (s *secretsGroupUseCaseWithMetrics) GetAllActiveVersionsOfAllSecrets(
	ctx context.Context,
) ([]*domain.SecretEntry, error) {
	start := time.Now()
	entries, err := s.next.GetAllActiveVersionsOfAllSecrets(ctx)
	s.record(ctx, "secret_get_versions_all", start, err)
	return entries, err
}

// GetVersion records metrics for administrative reads.
func (s *secretsGroupUseCaseWithMetrics) GetVersion(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (*domain.SecretEntry, error) {
	start := time.Now()
	entry, err := s.next.GetVersion(ctx, id, version)
	s.record(ctx, "secret_inspect", start, err)
	return entry, err
}

func (s *secretsGroupUseCaseWithMetrics) MaxVersion(ctx context.Context, id domain.SecretIdentifier) (uint64, error) {
	return s.next.MaxVersion(ctx, id)
}

func (s *secretsGroupUseCaseWithMetrics) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
