// Package migrations embeds the SQL schema and applies it with golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"stockflow/pkg/logger"
)

//go:embed sql/*.sql
var files embed.FS

// Migrator applies the embedded migrations to one database.
type Migrator struct {
	migrate *migrate.Migrate
}

// New creates a Migrator for the database at dsn (postgres:// or postgresql:// URL).
func New(dsn string) (*Migrator, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, DriverURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &Migrator{migrate: m}, nil
}

// DriverURL rewrites a PostgreSQL URL to the pgx/v5 migrate driver scheme.
func DriverURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	logger.Info(ctx, "running migrations up")
	return m.finish(ctx, "up", m.migrate.Up())
}

// Down rolls back every migration.
func (m *Migrator) Down(ctx context.Context) error {
	logger.Info(ctx, "running migrations down")
	return m.finish(ctx, "down", m.migrate.Down())
}

// Steps applies n migrations; negative n rolls back.
func (m *Migrator) Steps(ctx context.Context, n int) error {
	logger.Info(ctx, "running migration steps", "steps", n)
	return m.finish(ctx, "steps", m.migrate.Steps(n))
}

// Version returns the applied version and whether the last migration failed midway.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) finish(ctx context.Context, op string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info(ctx, "no migrations to apply", "op", op)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}
	logger.Info(ctx, "migrations completed", "op", op, "version", version, "dirty", dirty)
	return nil
}
