package migrations

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDBRejectsSingleConnection(t *testing.T) {
	_, err := OpenDB(filepath.Join(t.TempDir(), "clan.db"), Options{MaxOpenConns: 1})
	require.ErrorContains(t, err, "at least 2")
}

func TestOpenDBRejectsMemory(t *testing.T) {
	_, err := OpenDB(":memory:", Options{})
	require.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	require.True(t, IsRemote("libsql://clan.turso.io"))
	require.True(t, IsRemote("http://127.0.0.1:8080"))
	require.False(t, IsRemote("/var/lib/clantool/clan.db"))
	require.False(t, IsRemote("state/clan.db"))
}

func TestSqliteDSN(t *testing.T) {
	dsn := sqliteDSN("clan.db", Options{}.withDefaults())
	require.True(t, strings.HasPrefix(dsn, "clan.db?"))
	require.Contains(t, dsn, "_txlock=immediate")
	require.Contains(t, dsn, "busy_timeout%285000%29")
}

func TestOpenAndMigrateTwice(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "clan.db")

	database, err := OpenAndMigrateDB(ctx, path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, database.Close())

	database, err = OpenAndMigrateDB(ctx, path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	var count int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 9, count)
	require.Equal(t, DefaultMaxOpenConns, database.Stats().MaxOpenConnections)
}
