package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	secretsDomain "github.com/allisson/secretsgroup/internal/secrets/domain"
	"github.com/allisson/secretsgroup/internal/secrets/query"
	secretsUseCase "github.com/allisson/secretsgroup/internal/secrets/usecase"
)

// GetInput holds the flags of the get command.
type GetInput struct {
	Identifier string
	// Version 0 selects the latest version.
	Version uint64
	// IncludeInactive returns disabled versions and versions outside their window.
	IncludeInactive bool
}

// RunGetSecret decrypts one version of a secret and prints it, value included.
func RunGetSecret(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	input GetInput,
	format string,
) error {
	id := secretsDomain.SecretIdentifier(input.Identifier)
	if err := id.Validate(); err != nil {
		return err
	}

	entry, err := getSecret(ctx, secretsGroupUseCase, id, input)
	if err != nil {
		return fmt.Errorf("failed to get secret: %w", err)
	}
	defer entry.Zero()

	logger.Debug("secret read",
		slog.String("secret_identifier", string(entry.SecretIdentifier)),
		slog.Uint64("version", entry.Version),
	)

	if format == "json" {
		return writeJSON(writer, newSecretEntryView(entry))
	}
	writeSecretEntryText(writer, entry)
	return nil
}

func getSecret(
	ctx context.Context,
	uc secretsUseCase.SecretsGroupUseCase,
	id secretsDomain.SecretIdentifier,
	input GetInput,
) (*secretsDomain.SecretEntry, error) {
	switch {
	case input.IncludeInactive && input.Version == 0:
		latest, err := uc.MaxVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		return uc.GetVersion(ctx, id, latest)
	case input.IncludeInactive:
		return uc.GetVersion(ctx, id, input.Version)
	case input.Version == 0:
		return uc.GetLatestActiveVersion(ctx, id)
	default:
		return uc.GetActive(ctx, id, input.Version)
	}
}

// RunGetLatestSecrets decrypts the latest active version of every secret, or every
// active version when allVersions is set.
func RunGetLatestSecrets(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	allVersions bool,
	format string,
) error {
	var (
		entries []*secretsDomain.SecretEntry
		err     error
	)
	if allVersions {
		entries, err = secretsGroupUseCase.GetAllActiveVersionsOfAllSecrets(ctx)
	} else {
		entries, err = secretsGroupUseCase.GetLatestActiveVersionsOfAllSecrets(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to get secrets: %w", err)
	}
	defer func() {
		for _, e := range entries {
			e.Zero()
		}
	}()

	logger.Debug("secrets read", slog.Int("count", len(entries)))

	if format == "json" {
		views := make([]secretEntryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, newSecretEntryView(e))
		}
		return writeJSON(writer, views)
	}

	for i, e := range entries {
		if i > 0 {
			_, _ = fmt.Fprintln(writer)
		}
		writeSecretEntryText(writer, e)
	}
	return nil
}

// RunListSecrets prints the latest version of every secret without decrypting anything.
func RunListSecrets(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	activeOnly bool,
	format string,
) error {
	stream := secretsGroupUseCase.Stream().Reverse().UniquePrimaryKey()
	if activeOnly {
		stream = stream.Filter(query.Active())
	}
	return outputStream(ctx, stream, logger, writer, format)
}

// RunListVersions prints every version of a secret without decrypting anything.
func RunListVersions(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	identifier string,
	activeOnly bool,
	format string,
) error {
	id := secretsDomain.SecretIdentifier(identifier)
	if err := id.Validate(); err != nil {
		return err
	}

	stream := secretsGroupUseCase.Stream().Key(query.PartitionKey(id))
	if activeOnly {
		stream = stream.Filter(query.Active())
	}

	count, err := secretsGroupUseCase.Stream().Key(query.PartitionKey(id)).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("failed to list versions: %w: %s", secretsDomain.ErrSecretNotFound, id)
	}
	return outputStream(ctx, stream, logger, writer, format)
}

func outputStream(
	ctx context.Context,
	stream query.Stream,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	views := []rawEntryView{}
	count := 0
	for raw, err := range stream.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to query secrets: %w", err)
		}
		count++
		if format == "json" {
			views = append(views, newRawEntryView(raw))
			continue
		}
		writeRawEntryText(writer, raw)
	}

	logger.Debug("secrets listed", slog.Int("count", count))

	if format == "json" {
		return writeJSON(writer, views)
	}
	return nil
}
