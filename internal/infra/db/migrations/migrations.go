// Package migrations embeds the per-dialect schema and applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// Direction selects whether pending migrations are applied or all are rolled back.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Source returns the embedded migration source for dialect ("postgres" or "mysql").
func Source(dialect string) (source.Driver, error) {
	switch dialect {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	return iofs.New(files, dialect)
}

// Run migrates the database at databaseURL. The URL scheme selects the
// golang-migrate driver, so it must match dialect. Migrate opens its own
// connection and closes it on return.
func Run(dialect, databaseURL string, dir Direction, logger *zap.Logger) error {
	src, err := Source(dialect)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	switch dir {
	case Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)", zap.String("dialect", dialect))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if errors.Is(verr, migrate.ErrNilVersion) {
		logger.Info("Rolled back all migrations", zap.String("dialect", dialect))
		return nil
	}
	logger.Info("Applied migrations successfully",
		zap.String("dialect", dialect),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
