package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/secretsgroup/cmd/app/commands"
	"github.com/allisson/secretsgroup/internal/app"
	"github.com/allisson/secretsgroup/internal/config"
	secretsUseCase "github.com/allisson/secretsgroup/internal/secrets/usecase"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getSecretCommands()...)
	return cmds
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// withSecretsGroup loads the configuration, opens the secrets group and runs fn on it.
// Closing the group persists file store changes, so its error is returned too.
func withSecretsGroup(
	ctx context.Context,
	fn func(container *app.Container, secretsGroupUseCase secretsUseCase.SecretsGroupUseCase) error,
) (err error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	defer func() {
		if shutdownErr := container.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
	}()

	secretsGroupUseCase, err := container.SecretsGroupUseCase()
	if err != nil {
		return err
	}

	if err := fn(container, secretsGroupUseCase); err != nil {
		return err
	}

	if cfg.MetricsEnabled && cfg.MetricsPushgatewayURL != "" {
		provider, err := container.MetricsProvider()
		if err != nil {
			return err
		}
		commands.PushMetrics(
			ctx,
			provider,
			container.Logger(),
			cfg.MetricsPushgatewayURL,
			cfg.MetricsNamespace,
			cfg.GroupRegion,
			cfg.GroupName,
		)
	}
	return nil
}
