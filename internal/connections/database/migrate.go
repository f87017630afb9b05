package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"blossom-cafe/internal/common/config"
)

// Migrate applies all pending schema migrations from sourcePath
// (e.g. "file://migrations").
func Migrate(cfg config.Database, sourcePath string) error {
	// golang-migrate selects the pgx/v5 driver by URL scheme.
	dsn := strings.Replace(cfg.DSN(), "postgres://", "pgx5://", 1)
	m, err := migrate.New(sourcePath, dsn)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
