// Package migration applies the embedded schema migrations with golang-migrate.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers the "pgx5" scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

// RunUp applies all pending up migrations.
func RunUp(dsn string, logger *slog.Logger) error {
	source, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("migration: open source: %w", err)
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, toPgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migration: init: %w", err)
	}
	defer func() {
		srcErr, dbErr := migrator.Close()
		if srcErr != nil {
			logger.Error("migration source close", slog.Any("error", srcErr))
		}
		if dbErr != nil {
			logger.Error("migration db close", slog.Any("error", dbErr))
		}
	}()
	migrator.Log = &migrateLogger{logger: logger}

	current, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: read version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration: database dirty at version %d", current)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations up to date", slog.Uint64("version", uint64(current)))
			return nil
		}
		return fmt.Errorf("migration: up: %w", err)
	}
	next, _, _ := migrator.Version()
	logger.Info("migrations applied", slog.Uint64("from", uint64(current)), slog.Uint64("to", uint64(next)))
	return nil
}

// toPgx5DSN rewrites postgres:// URLs to the pgx5:// scheme the driver registers.
func toPgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *migrateLogger) Verbose() bool { return false }
