package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	secretsDomain "github.com/allisson/secretsgroup/internal/secrets/domain"
	secretsMocks "github.com/allisson/secretsgroup/internal/secrets/usecase/mocks"
)

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func matchValue(id, value string) any {
	return mock.MatchedBy(func(in *secretsDomain.NewSecretEntry) bool {
		return string(in.SecretIdentifier) == id && in.SecretValue.Text() == value
	})
}

func TestRunImportSecrets(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	input := "# service credentials\nDB_PASSWORD=hunter2\nAPI_KEY=\"k-123\"\n"

	t.Run("creates-and-adds-versions", func(t *testing.T) {
		mockUseCase := &secretsMocks.MockSecretsGroupUseCase{}
		mockUseCase.On("MaxVersion", ctx, secretsDomain.SecretIdentifier("API_KEY")).
			Return(uint64(0), secretsDomain.ErrSecretNotFound)
		mockUseCase.On("Create", ctx, matchValue("API_KEY", "k-123")).
			Return(secretsDomain.RawSecretEntry{SecretIdentifier: "API_KEY", Version: 1}, nil)
		mockUseCase.On("MaxVersion", ctx, secretsDomain.SecretIdentifier("DB_PASSWORD")).
			Return(uint64(2), nil)
		mockUseCase.On("AddVersion", ctx, matchValue("DB_PASSWORD", "hunter2")).
			Return(secretsDomain.RawSecretEntry{SecretIdentifier: "DB_PASSWORD", Version: 3}, nil)

		var out bytes.Buffer
		streams := IOTuple{Reader: strings.NewReader(input), Writer: &out}
		err := RunImportSecrets(ctx, mockUseCase, nil, logger, streams, "text")
		require.NoError(t, err)
		require.Equal(t,
			"Imported secret API_KEY version 1\nImported secret DB_PASSWORD version 3\n",
			out.String(),
		)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("runs-in-transaction", func(t *testing.T) {
		mockUseCase := &secretsMocks.MockSecretsGroupUseCase{}
		mockUseCase.On("MaxVersion", ctx, mock.Anything).Return(uint64(0), secretsDomain.ErrSecretNotFound)
		mockUseCase.On("Create", ctx, mock.Anything).
			Return(secretsDomain.RawSecretEntry{SecretIdentifier: "X", Version: 1}, nil)
		txManager := &MockTxManager{}
		txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()

		var out bytes.Buffer
		streams := IOTuple{Reader: strings.NewReader(input), Writer: &out}
		err := RunImportSecrets(ctx, mockUseCase, txManager, logger, streams, "json")
		require.NoError(t, err)
		require.Contains(t, out.String(), `"version": 1`)
		txManager.AssertExpectations(t)
		mockUseCase.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("failure-stops-import", func(t *testing.T) {
		mockUseCase := &secretsMocks.MockSecretsGroupUseCase{}
		mockUseCase.On("MaxVersion", ctx, secretsDomain.SecretIdentifier("API_KEY")).
			Return(uint64(0), errors.New("connection reset"))

		var out bytes.Buffer
		streams := IOTuple{Reader: strings.NewReader(input), Writer: &out}
		err := RunImportSecrets(ctx, mockUseCase, nil, logger, streams, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to import API_KEY")
		require.Empty(t, out.String())
		mockUseCase.AssertNotCalled(t, "MaxVersion", ctx, secretsDomain.SecretIdentifier("DB_PASSWORD"))
	})

	t.Run("transaction-error", func(t *testing.T) {
		txManager := &MockTxManager{}
		txManager.On("WithTx", ctx, mock.Anything).Return(errors.New("failed to begin transaction"))

		streams := IOTuple{Reader: strings.NewReader(input), Writer: &bytes.Buffer{}}
		err := RunImportSecrets(ctx, nil, txManager, logger, streams, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to begin transaction")
	})

	t.Run("empty-input", func(t *testing.T) {
		streams := IOTuple{Reader: strings.NewReader("# nothing\n"), Writer: &bytes.Buffer{}}
		err := RunImportSecrets(ctx, nil, nil, logger, streams, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "nothing to import")
	})
}
