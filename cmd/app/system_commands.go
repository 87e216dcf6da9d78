package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/secretsgroup/cmd/app/commands"
	"github.com/allisson/secretsgroup/internal/app"
	"github.com/allisson/secretsgroup/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Create or upgrade the secret_entries table of the SQL store",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "dir",
					Value: "migrations",
					Usage: "Directory holding the postgresql and mysql migrations",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				driver := cfg.DBDriverFor()
				if driver != config.StoreBackendPostgres && driver != config.StoreBackendMySQL {
					return fmt.Errorf("migrate requires a postgres or mysql database, got driver %q", driver)
				}

				return commands.RunMigrations(
					container.Logger(),
					driver,
					cfg.DBConnectionString,
					cmd.String("dir"),
				)
			},
		},
		{
			Name:  "version",
			Usage: "Print the application version",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				_, err := fmt.Fprintln(commands.DefaultIO().Writer, version)
				return err
			},
		},
	}
}
