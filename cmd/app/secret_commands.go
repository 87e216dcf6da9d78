package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/secretsgroup/cmd/app/commands"
	"github.com/allisson/secretsgroup/internal/app"
	"github.com/allisson/secretsgroup/internal/config"
	"github.com/allisson/secretsgroup/internal/database"
	secretsUseCase "github.com/allisson/secretsgroup/internal/secrets/usecase"
)

func secretValueFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Aliases:  []string{"i"},
			Required: true,
			Usage:    "Secret identifier",
		},
		&cli.StringFlag{
			Name:     "value",
			Aliases:  []string{"v"},
			Required: true,
			Usage:    "Secret value, or '-' to read it from stdin",
		},
		&cli.BoolFlag{
			Name:  "binary",
			Usage: "The value is standard base64 of a binary secret",
		},
		&cli.StringFlag{
			Name:  "state",
			Usage: "Initial state: 'enabled' or 'disabled'",
		},
		&cli.StringFlag{
			Name:  "not-before",
			Usage: "Start of the validity window (RFC 3339 or YYYY-MM-DD)",
		},
		&cli.StringFlag{
			Name:  "not-after",
			Usage: "End of the validity window (RFC 3339 or YYYY-MM-DD)",
		},
		&cli.StringFlag{
			Name:  "comment",
			Usage: "Free text note stored encrypted with the version",
		},
		&cli.StringFlag{
			Name:  "user-data",
			Usage: "Opaque data stored encrypted with the version",
		},
		formatFlag(),
	}
}

func secretInputFrom(cmd *cli.Command) commands.SecretInput {
	return commands.SecretInput{
		Identifier: cmd.String("id"),
		Value:      cmd.String("value"),
		Binary:     cmd.Bool("binary"),
		State:      cmd.String("state"),
		NotBefore:  cmd.String("not-before"),
		NotAfter:   cmd.String("not-after"),
		Comment:    cmd.String("comment"),
		UserData:   cmd.String("user-data"),
	}
}

func optionalString(cmd *cli.Command, name string) *string {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.String(name)
	return &v
}

func getSecretCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create",
			Usage: "Create a new secret with version 1",
			Flags: secretValueFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunCreateSecret(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO(),
							secretInputFrom(cmd),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "add-version",
			Usage: "Add the next version of an existing secret",
			Flags: secretValueFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunAddSecretVersion(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO(),
							secretInputFrom(cmd),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "update",
			Usage: "Change the state, validity window, comment or user data of one version",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Secret identifier",
				},
				&cli.Uint64Flag{
					Name:     "version",
					Required: true,
					Usage:    "Version to update",
				},
				&cli.StringFlag{
					Name:  "state",
					Usage: "New state: 'enabled' or 'disabled'",
				},
				&cli.StringFlag{
					Name:  "not-before",
					Usage: "Start of the validity window, or 'none' to remove it",
				},
				&cli.StringFlag{
					Name:  "not-after",
					Usage: "End of the validity window, or 'none' to remove it",
				},
				&cli.StringFlag{
					Name:  "comment",
					Usage: "New comment; an empty value removes it",
				},
				&cli.StringFlag{
					Name:  "user-data",
					Usage: "New user data; an empty value removes it",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunUpdateSecret(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO().Writer,
							commands.UpdateInput{
								Identifier: cmd.String("id"),
								Version:    cmd.Uint64("version"),
								State:      cmd.String("state"),
								NotBefore:  cmd.String("not-before"),
								NotAfter:   cmd.String("not-after"),
								Comment:    optionalString(cmd, "comment"),
								UserData:   optionalString(cmd, "user-data"),
							},
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "get",
			Usage: "Decrypt and print one version of a secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Secret identifier",
				},
				&cli.Uint64Flag{
					Name:  "version",
					Usage: "Version to read; the latest active version when omitted",
				},
				&cli.BoolFlag{
					Name:  "include-inactive",
					Usage: "Also return disabled versions and versions outside their validity window",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunGetSecret(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO().Writer,
							commands.GetInput{
								Identifier:      cmd.String("id"),
								Version:         cmd.Uint64("version"),
								IncludeInactive: cmd.Bool("include-inactive"),
							},
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "get-latest",
			Usage: "Decrypt and print the latest active version of every secret",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "all-versions",
					Usage: "Print every active version instead of the latest one",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunGetLatestSecrets(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.Bool("all-versions"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "list",
			Usage: "List the latest version of every secret without decrypting",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "active",
					Usage: "Only consider active versions",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunListSecrets(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.Bool("active"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "versions",
			Usage: "List every version of a secret without decrypting",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Secret identifier",
				},
				&cli.BoolFlag{
					Name:  "active",
					Usage: "Only list active versions",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunListVersions(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("id"),
							cmd.Bool("active"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "delete",
			Usage: "Delete every version of a secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Secret identifier",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						return commands.RunDeleteSecret(
							ctx,
							uc,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("id"),
							cmd.String("format"),
						)
					})
			},
		},
		{
			Name:  "import",
			Usage: "Import KEY=value lines from stdin as secrets or new secret versions",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withSecretsGroup(ctx,
					func(container *app.Container, uc secretsUseCase.SecretsGroupUseCase) error {
						var txManager database.TxManager
						switch container.Config().StoreBackend {
						case config.StoreBackendPostgres, config.StoreBackendMySQL:
							tm, err := container.TxManager()
							if err != nil {
								return err
							}
							txManager = tm
						}

						return commands.RunImportSecrets(
							ctx,
							uc,
							txManager,
							container.Logger(),
							commands.DefaultIO(),
							cmd.String("format"),
						)
					})
			},
		},
	}
}
