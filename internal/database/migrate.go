package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationsURL returns the golang-migrate source URL of the schema of driver below dir.
func MigrationsURL(dir, driver string) string {
	sub := "postgresql"
	if driver == "mysql" {
		sub = "mysql"
	}
	return "file://" + dir + "/" + sub
}

// Migrate applies every pending migration from sourceURL to the database at
// connectionString. Nothing to apply is not an error.
func Migrate(logger *slog.Logger, sourceURL, connectionString string) error {
	m, err := migrate.New(sourceURL, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, databaseErr := m.Close()
		if sourceErr != nil || databaseErr != nil {
			logger.Error("failed to close the migrate",
				slog.Any("source_error", sourceErr),
				slog.Any("database_error", databaseErr),
			)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}
