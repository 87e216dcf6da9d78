// Package mocks provides mock implementations of the secrets group interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
)

// MockStore is a mock implementation of usecase.Store.
type MockStore struct {
	mock.Mock
}

// Create mocks the Create method of Store.
func (m *MockStore) Create(ctx context.Context, entry domain.RawSecretEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Update mocks the Update method of Store.
func (m *MockStore) Update(ctx context.Context, entry, previous domain.RawSecretEntry) error {
	args := m.Called(ctx, entry, previous)
	return args.Error(0)
}

// Delete mocks the Delete method of Store.
func (m *MockStore) Delete(ctx context.Context, id domain.SecretIdentifier) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// KeySet mocks the KeySet method of Store.
func (m *MockStore) KeySet(ctx context.Context) ([]domain.SecretIdentifier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SecretIdentifier), args.Error(1)
}

// Stream returns a stream whose scans go through Scan.
func (m *MockStore) Stream() query.Stream {
	return query.NewStream(query.SourceFunc(m.Scan))
}

// Scan mocks the scans issued by streams of the store.
func (m *MockStore) Scan(ctx context.Context, key query.KeyCondition) ([]domain.RawSecretEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawSecretEntry), args.Error(1)
}

// Close mocks the Close method of Store.
func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
