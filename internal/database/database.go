package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ms-venues/internal/config"
	"ms-venues/internal/database/migrations"
	"ms-venues/internal/db"
	"ms-venues/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured store, retrying while it comes up, and
// prepares the schema when AutoMigrate is set. PostgreSQL gets the SQL
// migrations; SQLite gets tables created from the models.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*db.DB, error) {
	var (
		driverName string
		newDialect func() schema.Dialect
	)
	switch cfg.Driver {
	case DriverPostgres:
		driverName = "postgres"
		newDialect = func() schema.Dialect { return pgdialect.New() }
	case DriverSQLite:
		driverName = sqliteshim.DriverName()
		newDialect = func() schema.Dialect { return sqlitedialect.New() }
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqldb, err := connect(ctx, driverName, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		sqldb.SetMaxOpenConns(1)
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	bunDB := bun.NewDB(sqldb, newDialect())
	if cfg.AutoMigrate {
		if err := Migrate(ctx, bunDB, false, log); err != nil {
			bunDB.Close()
			return nil, err
		}
	}
	return db.New(bunDB), nil
}

func connect(ctx context.Context, driverName string, cfg config.DatabaseConfig, log *logger.Logger) (*sql.DB, error) {
	attempts := max(cfg.ConnectRetries, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, attempts))
		sqldb, err := sql.Open(driverName, cfg.DSN)
		if err == nil {
			if err = sqldb.PingContext(ctx); err == nil {
				log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))
				return sqldb, nil
			}
			sqldb.Close()
		}
		lastErr = err
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, attempts, lastErr)
}

// Migrate prepares the schema for the dialect of bunDB.
func Migrate(ctx context.Context, bunDB *bun.DB, seed bool, log *logger.Logger) error {
	if bunDB.Dialect().Name() != dialect.PG {
		log.LogDatabase("CREATE", "*", "Creating schema from models")
		return db.CreateSchema(ctx, bunDB)
	}
	runner := migrations.NewRunner(bunDB.DB, migrations.MigrateOptions{SeedData: seed}, log)
	defer runner.Close()
	return runner.RunMigrations()
}
