package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"clantool/internal/components/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const DefaultMaxOpenConns = 4
const DefaultBusyTimeoutMs = 5000

type Options struct {
	// a scope guard and the operation it guards hold a connection each, so this must be at least 2
	MaxOpenConns  int `json:"max_open_conns"`
	BusyTimeoutMs int `json:"busy_timeout_ms"`
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns == 0 {
		o.MaxOpenConns = DefaultMaxOpenConns
	}
	if o.BusyTimeoutMs == 0 {
		o.BusyTimeoutMs = DefaultBusyTimeoutMs
	}
	return o
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// IsRemote reports whether dsn points at a libsql server instead of a local file.
func IsRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

func sqliteDSN(path string, opts Options) string {
	query := url.Values{}
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeoutMs))
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "foreign_keys(1)")
	// writers take the lock when the transaction begins so that a read inside
	// the transaction never has to be upgraded
	query.Set("_txlock", "immediate")
	return fmt.Sprintf("%s?%s", path, query.Encode())
}

// OpenDB opens either a local sqlite file or, for libsql/http(s)/ws(s) urls, a libsql server.
func OpenDB(dsn string, opts Options) (*sql.DB, error) {
	opts = opts.withDefaults()
	if opts.MaxOpenConns < 2 {
		return nil, wrapOpenDB(fmt.Errorf("max_open_conns must be at least 2, got %d", opts.MaxOpenConns))
	}
	if dsn == "" || strings.Contains(dsn, ":memory:") {
		return nil, wrapOpenDB(fmt.Errorf("'%s' is not a shareable database, use a file path", dsn))
	}

	driver := "libsql"
	source := dsn
	if !IsRemote(dsn) {
		err := os.MkdirAll(filepath.Dir(dsn), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		driver = "sqlite"
		source = sqliteDSN(dsn, opts)
	}

	database, err := sql.Open(driver, source)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)

	err = database.Ping()
	if err != nil {
		database.Close()
		return nil, wrapOpenDB(err)
	}
	return database, nil
}

func wrapMigrate(err error) error {
	return fmt.Errorf("migrate db: %w", err)
}

// Migrate creates every table and view of the schema, objects that already
// exist are left untouched.
func Migrate(ctx context.Context, database *sql.DB) error {
	for _, stmt := range db.Statements() {
		_, err := database.ExecContext(ctx, stmt)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return wrapMigrate(err)
		}
	}
	return nil
}

func OpenAndMigrateDB(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	database, err := OpenDB(dsn, opts)
	if err != nil {
		return nil, err
	}
	err = Migrate(ctx, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
