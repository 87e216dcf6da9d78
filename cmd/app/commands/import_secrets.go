package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joho/godotenv"

	"github.com/allisson/secretsgroup/internal/database"
	secretsDomain "github.com/allisson/secretsgroup/internal/secrets/domain"
	secretsUseCase "github.com/allisson/secretsgroup/internal/secrets/usecase"
)

// importResult reports what RunImportSecrets wrote for one identifier.
type importResult struct {
	SecretIdentifier string `json:"secret_identifier"`
	Version          uint64 `json:"version"`
}

// RunImportSecrets reads KEY=value lines in .env syntax and stores each value as a new
// secret, or as a new version of an existing one. With a txManager the whole import runs
// in one transaction, so a failure leaves the SQL store untouched.
func RunImportSecrets(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	txManager database.TxManager,
	logger *slog.Logger,
	streams IOTuple,
	format string,
) error {
	values, err := godotenv.Parse(streams.Reader)
	if err != nil {
		return fmt.Errorf("failed to parse import input: %w", err)
	}
	if len(values) == 0 {
		return fmt.Errorf("nothing to import")
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var results []importResult
	run := func(ctx context.Context) error {
		results = results[:0]
		for _, key := range keys {
			raw, err := importSecret(ctx, secretsGroupUseCase, key, values[key])
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", key, err)
			}
			results = append(results, importResult{
				SecretIdentifier: string(raw.SecretIdentifier),
				Version:          raw.Version,
			})
		}
		return nil
	}

	if txManager != nil {
		err = txManager.WithTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return err
	}

	logger.Info("secrets imported", slog.Int("count", len(results)))

	if format == "json" {
		return writeJSON(streams.Writer, results)
	}
	for _, r := range results {
		_, _ = fmt.Fprintf(streams.Writer, "Imported secret %s version %d\n", r.SecretIdentifier, r.Version)
	}
	return nil
}

func importSecret(
	ctx context.Context,
	uc secretsUseCase.SecretsGroupUseCase,
	key, value string,
) (secretsDomain.RawSecretEntry, error) {
	entry := &secretsDomain.NewSecretEntry{
		SecretIdentifier: secretsDomain.SecretIdentifier(key),
		SecretValue:      secretsDomain.NewOpaqueValue(value),
	}
	defer entry.Zero()

	_, err := uc.MaxVersion(ctx, entry.SecretIdentifier)
	switch {
	case errors.Is(err, secretsDomain.ErrSecretNotFound):
		return uc.Create(ctx, entry)
	case err != nil:
		return secretsDomain.RawSecretEntry{}, err
	default:
		return uc.AddVersion(ctx, entry)
	}
}
