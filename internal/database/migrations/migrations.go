package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"ms-venues/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

// SchemaVersion is the last schema migration. Later versions carry seed data.
const SchemaVersion uint = 1

type MigrateOptions struct {
	// SeedData applies the demo data migrations on top of the schema.
	SeedData bool
}

// Runner applies the embedded PostgreSQL migrations.
type Runner struct {
	sqlDB    *sql.DB
	options  MigrateOptions
	log      *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(sqlDB *sql.DB, opts MigrateOptions, log *logger.Logger) *Runner {
	return &Runner{sqlDB: sqlDB, options: opts, log: log}
}

func (r *Runner) Initialize() error {
	if r.migrator != nil {
		return nil
	}
	// The driver borrows one connection; closing it must leave the pool open.
	ctx := context.Background()
	conn, err := r.sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	source, err := iofs.New(files, "sql")
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	r.migrator = migrator
	return nil
}

// RunMigrations brings the schema up to date. Without SeedData it stops at
// SchemaVersion; a dirty schema version is forced clean before migrating.
func (r *Runner) RunMigrations() error {
	if err := r.Initialize(); err != nil {
		return err
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.log.Warn("DATABASE", fmt.Sprintf("Detected dirty migration %d, forcing clean", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if r.options.SeedData {
		r.log.Info("DATABASE", "Running all migrations including seed data")
		err = r.migrator.Up()
	} else if errors.Is(err, migrate.ErrNilVersion) || version < SchemaVersion {
		r.log.Info("DATABASE", "Running schema migrations only")
		err = r.migrator.Migrate(SchemaVersion)
	} else {
		err = nil
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if v, _, err := r.migrator.Version(); err == nil {
		r.log.LogDatabase("MIGRATE", "schema_migrations", fmt.Sprintf("Current schema version: %d", v))
	}
	return nil
}

func (r *Runner) MigrateUp() error {
	if err := r.Initialize(); err != nil {
		return err
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back all migrations
func (r *Runner) MigrateDown() error {
	if err := r.Initialize(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateTo moves the schema up or down to version.
func (r *Runner) MigrateTo(version uint) error {
	if err := r.Initialize(); err != nil {
		return err
	}
	if err := r.migrator.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

func (r *Runner) Version() (uint, bool, error) {
	if err := r.Initialize(); err != nil {
		return 0, false, err
	}
	v, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the migration source and returns the borrowed connection to
// the pool. The *sql.DB passed to NewRunner stays open.
func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("error closing migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("error closing migrator database: %w", databaseErr)
	}
	return nil
}
