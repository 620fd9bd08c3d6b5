package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"clantool/internal/components/db"
	"clantool/pkg/migrations"
)

// Connect opens the configured test database, or a temp file owned by t.
func Connect(t testing.TB) *sql.DB {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	dsn := cfg.DB
	if dsn == "" {
		dsn = filepath.Join(t.TempDir(), "clantool.db")
	}
	database, err := migrations.OpenDB(dsn, migrations.Options{MaxOpenConns: cfg.MaxConns})
	if err != nil {
		t.Fatal(err)
	}
	return database
}

// Setup creates the schema on an empty database and registers its teardown
// with t.Cleanup. The guard keeps one connection checked out until then.
func Setup(t testing.TB) (*sql.DB, *CleanupGuard) {
	database := Connect(t)
	return database, SetupOn(t, database)
}

// SetupOn is Setup for an already opened database.
func SetupOn(t testing.TB, database *sql.DB) *CleanupGuard {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err = VerifyEmpty(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	conn, err := database.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}

	guard, err := SetupTables(ctx, conn, db.Statements())
	guard.Disabled = cfg.KeepTables
	guard.logf = t.Logf
	t.Cleanup(func() {
		closeErr := guard.Close()
		if closeErr != nil {
			t.Error(closeErr)
		}
		if closeErr == nil && !guard.Disabled {
			if verifyErr := VerifyEmpty(context.Background(), database); verifyErr != nil {
				t.Error(verifyErr)
			}
		}
		database.Close()
	})
	if err != nil {
		t.Fatal(err)
	}
	return guard
}
