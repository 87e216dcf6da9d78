package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// MockSecretsGroupUseCase is a mock implementation of usecase.SecretsGroupUseCase.
type MockSecretsGroupUseCase struct {
	mock.Mock
}

func entryOrNil(args mock.Arguments) (*domain.SecretEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SecretEntry), args.Error(1)
}

func entriesOrNil(args mock.Arguments) ([]*domain.SecretEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SecretEntry), args.Error(1)
}

// Group mocks the Group method.
func (m *MockSecretsGroupUseCase) Group() domain.SecretsGroupIdentifier {
	args := m.Called()
	return args.Get(0).(domain.SecretsGroupIdentifier)
}

// Create mocks the Create method.
func (m *MockSecretsGroupUseCase) Create(
	ctx context.Context,
	input *domain.NewSecretEntry,
) (domain.RawSecretEntry, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.RawSecretEntry), args.Error(1)
}

// AddVersion mocks the AddVersion method.
func (m *MockSecretsGroupUseCase) AddVersion(
	ctx context.Context,
	input *domain.NewSecretEntry,
) (domain.RawSecretEntry, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.RawSecretEntry), args.Error(1)
}

// Update mocks the Update method.
func (m *MockSecretsGroupUseCase) Update(
	ctx context.Context,
	input *domain.SecretMetadata,
) (domain.RawSecretEntry, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.RawSecretEntry), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockSecretsGroupUseCase) Delete(ctx context.Context, id domain.SecretIdentifier) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Identifiers mocks the Identifiers method.
func (m *MockSecretsGroupUseCase) Identifiers(ctx context.Context) ([]domain.SecretIdentifier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SecretIdentifier), args.Error(1)
}

// Stream mocks the Stream method.
func (m *MockSecretsGroupUseCase) Stream() query.Stream {
	args := m.Called()
	return args.Get(0).(query.Stream)
}

// Decrypt mocks the Decrypt method.
func (m *MockSecretsGroupUseCase) Decrypt(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.SecretEntry, error) {
	return entryOrNil(m.Called(ctx, raw, expectedID, expectedVersion))
}

// DecryptEvenIfNotActive mocks the DecryptEvenIfNotActive method.
func (m *MockSecretsGroupUseCase) DecryptEvenIfNotActive(
	ctx context.Context,
	raw domain.RawSecretEntry,
	expectedID domain.SecretIdentifier,
	expectedVersion uint64,
) (*domain.SecretEntry, error) {
	return entryOrNil(m.Called(ctx, raw, expectedID, expectedVersion))
}

// GetLatestActiveVersion mocks the GetLatestActiveVersion method.
func (m *MockSecretsGroupUseCase) GetLatestActiveVersion(
	ctx context.Context,
	id domain.SecretIdentifier,
) (*domain.SecretEntry, error) {
	return entryOrNil(m.Called(ctx, id))
}

// GetActive mocks the GetActive method.
func (m *MockSecretsGroupUseCase) GetActive(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (*domain.SecretEntry, error) {
	return entryOrNil(m.Called(ctx, id, version))
}

// GetAllActiveVersions mocks the GetAllActiveVersions method.
func (m *MockSecretsGroupUseCase) GetAllActiveVersions(
	ctx context.Context,
	id domain.SecretIdentifier,
) ([]*domain.SecretEntry, error) {
	return entriesOrNil(m.Called(ctx, id))
}

// GetLatestActiveVersionsOfAllSecrets mocks the GetLatestActiveVersionsOfAllSecrets method.
func (m *MockSecretsGroupUseCase) GetLatestActiveVersionsOfAllSecrets(
	ctx context.Context,
) ([]*domain.SecretEntry, error) {
	return entriesOrNil(m.Called(ctx))
}

// GetAllActiveVersionsOfAllSecrets mocks the GetAllActiveVersionsOfAllSecrets method.
func (m *MockSecretsGroupUseCase) GetAllActiveVersionsOfAllSecrets(
	ctx context.Context,
) ([]*domain.SecretEntry, error) {
	return entriesOrNil(m.Called(ctx))
}

// GetVersion mocks the GetVersion method.
func (m *MockSecretsGroupUseCase) GetVersion(
	ctx context.Context,
	id domain.SecretIdentifier,
	version uint64,
) (*domain.SecretEntry, error) {
	return entryOrNil(m.Called(ctx, id, version))
}

// MaxVersion mocks the MaxVersion method.
func (m *MockSecretsGroupUseCase) MaxVersion(ctx context.Context, id domain.SecretIdentifier) (uint64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uint64), args.Error(1)
}

// Close mocks the Close method.
func (m *MockSecretsGroupUseCase) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
