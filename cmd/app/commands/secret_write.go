package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	secretsDomain "github.com/allisson/secretsgroup/internal/secrets/domain"
	secretsUseCase "github.com/allisson/secretsgroup/internal/secrets/usecase"
)

// SecretInput holds the flags of the create and add-version commands.
type SecretInput struct {
	Identifier string
	// Value is the secret material; "-" reads it from the command input.
	Value string
	// Binary declares Value as standard base64 of a binary secret.
	Binary    bool
	State     string
	NotBefore string
	NotAfter  string
	Comment   string
	UserData  string
}

func (in SecretInput) newSecretEntry(reader io.Reader) (*secretsDomain.NewSecretEntry, error) {
	raw, err := readSecretValue(reader, in.Value)
	if err != nil {
		return nil, err
	}

	value := secretsDomain.NewSecretValue(secretsDomain.SecretTypeOpaque, raw)
	if in.Binary {
		decoded, err := base64.StdEncoding.DecodeString(string(raw))
		clear(raw)
		if err != nil {
			return nil, fmt.Errorf("binary value must be standard base64: %w", err)
		}
		value = secretsDomain.NewSecretValue(secretsDomain.SecretTypeBinary, decoded)
	}

	entry := &secretsDomain.NewSecretEntry{
		SecretIdentifier: secretsDomain.SecretIdentifier(in.Identifier),
		SecretValue:      value,
	}

	if in.State != "" {
		state, err := secretsDomain.ParseState(in.State)
		if err != nil {
			entry.Zero()
			return nil, err
		}
		entry.State = state
	}
	if entry.NotBefore, err = parseOptionalTime(in.NotBefore); err != nil {
		entry.Zero()
		return nil, fmt.Errorf("invalid not-before: %w", err)
	}
	if entry.NotAfter, err = parseOptionalTime(in.NotAfter); err != nil {
		entry.Zero()
		return nil, fmt.Errorf("invalid not-after: %w", err)
	}
	if in.Comment != "" {
		comment := secretsDomain.Comment(in.Comment)
		entry.Comment = &comment
	}
	if in.UserData != "" {
		entry.UserData = secretsDomain.UserData(in.UserData)
	}
	return entry, nil
}

// RunCreateSecret stores version 1 of a new secret and prints the stored version without
// its value.
func RunCreateSecret(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	streams IOTuple,
	input SecretInput,
	format string,
) error {
	entry, err := input.newSecretEntry(streams.Reader)
	if err != nil {
		return err
	}
	defer entry.Zero()

	raw, err := secretsGroupUseCase.Create(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create secret: %w", err)
	}

	logger.Info("secret created",
		slog.String("secret_identifier", string(raw.SecretIdentifier)),
		slog.Uint64("version", raw.Version),
	)
	return outputWritten(streams.Writer, "Created", raw, format)
}

// RunAddSecretVersion stores the next version of an existing secret.
func RunAddSecretVersion(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	streams IOTuple,
	input SecretInput,
	format string,
) error {
	entry, err := input.newSecretEntry(streams.Reader)
	if err != nil {
		return err
	}
	defer entry.Zero()

	raw, err := secretsGroupUseCase.AddVersion(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}

	logger.Info("secret version added",
		slog.String("secret_identifier", string(raw.SecretIdentifier)),
		slog.Uint64("version", raw.Version),
	)
	return outputWritten(streams.Writer, "Added", raw, format)
}

// UpdateInput holds the flags of the update command. Empty strings and nil pointers keep
// the stored value.
type UpdateInput struct {
	Identifier string
	Version    uint64
	State      string
	// NotBefore and NotAfter accept "none" to remove the bound.
	NotBefore string
	NotAfter  string
	// Comment and UserData set to "" remove the stored value.
	Comment  *string
	UserData *string
}

func (in UpdateInput) secretMetadata() (*secretsDomain.SecretMetadata, error) {
	metadata := &secretsDomain.SecretMetadata{
		SecretIdentifier: secretsDomain.SecretIdentifier(in.Identifier),
		Version:          in.Version,
	}

	if in.State != "" {
		state, err := secretsDomain.ParseState(in.State)
		if err != nil {
			return nil, err
		}
		metadata.State = &state
	}

	var err error
	if metadata.NotBefore, err = parseTimePatch(in.NotBefore); err != nil {
		return nil, fmt.Errorf("invalid not-before: %w", err)
	}
	if metadata.NotAfter, err = parseTimePatch(in.NotAfter); err != nil {
		return nil, fmt.Errorf("invalid not-after: %w", err)
	}

	if in.Comment != nil {
		if *in.Comment == "" {
			metadata.Comment = secretsDomain.Clear[secretsDomain.Comment]()
		} else {
			metadata.Comment = secretsDomain.Set(secretsDomain.Comment(*in.Comment))
		}
	}
	if in.UserData != nil {
		if *in.UserData == "" {
			metadata.UserData = secretsDomain.Clear[secretsDomain.UserData]()
		} else {
			metadata.UserData = secretsDomain.Set(secretsDomain.UserData(*in.UserData))
		}
	}

	if metadata.IsEmpty() {
		return nil, fmt.Errorf("nothing to update: set at least one of state, not-before, not-after, comment or user-data")
	}
	return metadata, nil
}

// RunUpdateSecret rewrites the metadata of one version.
func RunUpdateSecret(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	input UpdateInput,
	format string,
) error {
	metadata, err := input.secretMetadata()
	if err != nil {
		return err
	}

	raw, err := secretsGroupUseCase.Update(ctx, metadata)
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}

	logger.Info("secret updated",
		slog.String("secret_identifier", string(raw.SecretIdentifier)),
		slog.Uint64("version", raw.Version),
	)
	return outputWritten(writer, "Updated", raw, format)
}

// RunDeleteSecret removes every version of a secret.
func RunDeleteSecret(
	ctx context.Context,
	secretsGroupUseCase secretsUseCase.SecretsGroupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	identifier string,
	format string,
) error {
	id := secretsDomain.SecretIdentifier(identifier)
	if err := id.Validate(); err != nil {
		return err
	}

	if err := secretsGroupUseCase.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	logger.Info("secret deleted", slog.String("secret_identifier", identifier))

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"secret_identifier": identifier,
			"deleted":           true,
		})
	}
	_, _ = fmt.Fprintf(writer, "Deleted secret %s\n", identifier)
	return nil
}

func outputWritten(writer io.Writer, verb string, raw secretsDomain.RawSecretEntry, format string) error {
	if format == "json" {
		return writeJSON(writer, newRawEntryView(raw))
	}
	_, _ = fmt.Fprintf(writer, "%s secret %s version %d\n", verb, raw.SecretIdentifier, raw.Version)
	return nil
}
