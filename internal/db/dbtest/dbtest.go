// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"ms-venues/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns a store over a private in-memory database with the full schema.
// The pool is pinned to one connection so transactions serialize.
func New(t testing.TB) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.CreateSchema(context.Background(), bunDB); err != nil {
		bunDB.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { bunDB.Close() })

	return db.New(bunDB)
}
