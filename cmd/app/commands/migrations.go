package commands

import (
	"log/slog"
	"strings"

	"github.com/allisson/secretsgroup/internal/database"
)

// RunMigrations applies the SQL store schema found under migrationsDir for driver.
// MySQL DSNs are prefixed with mysql:// as golang-migrate expects.
func RunMigrations(logger *slog.Logger, driver, connectionString, migrationsDir string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	if driver == "mysql" && !strings.HasPrefix(connectionString, "mysql://") {
		connectionString = "mysql://" + connectionString
	}

	return database.Migrate(logger, database.MigrationsURL(migrationsDir, driver), connectionString)
}
