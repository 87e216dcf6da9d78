package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/secretsgroup/cmd/app/commands"
	"github.com/allisson/secretsgroup/internal/app"
	"github.com/allisson/secretsgroup/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new Master Key for the master-key encryptor",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Master key ID (e.g., prod-master-key-2026)",
				},
				&cli.BoolFlag{
					Name:  "rotate",
					Usage: "Append the new key to MASTER_KEYS and make it the active key",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				existingKeys := ""
				if cmd.Bool("rotate") {
					existingKeys = cfg.MasterKeys
				}

				return commands.RunCreateMasterKey(
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					existingKeys,
				)
			},
		},
	}
}
